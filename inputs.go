package advisory

import (
	"fmt"
	"sort"

	"github.com/etnz/advisory/date"
	"github.com/shopspring/decimal"
)

// PlanInputs is the snapshot of a user's financial state handed to the model for one advisory
// request, together with the references the model is allowed to cite.
//
// It is built fresh for each request and must not be modified once built: the audits compare
// the model's output against it.
type PlanInputs struct {
	Client      ClientInfo    `json:"client"`
	Snapshot    Snapshot      `json:"snapshot"`
	Goals       []GoalInput   `json:"goals"`
	CashFlow    CashFlowInput `json:"cash_flow"`
	Debts       []DebtInput   `json:"debts"`
	PlanOutputs *PlanOutputs  `json:"plan_outputs,omitempty"`
	Derived     Derived       `json:"derived"`
	Constraints Constraints   `json:"constraints"`
	KBContext   []KBRef       `json:"kb_context"`
}

type ClientInfo struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	RiskBand string `json:"risk_band"`
	Currency string `json:"currency"`
}

type Snapshot struct {
	AsOf             date.Date `json:"as_of"`
	NetWorth         Money     `json:"net_worth"`
	LiquidNetWorth   *Money    `json:"liquid_net_worth,omitempty"`
	TotalAssets      Money     `json:"total_assets"`
	TotalLiabilities Money     `json:"total_liabilities"`
	SavingsRate      Percent   `json:"savings_rate"`
	DebtToIncome     Percent   `json:"debt_to_income"`
}

type GoalInput struct {
	Name                        string    `json:"name"`
	TargetAmount                Money     `json:"target_amount"`
	CurrentAmount               Money     `json:"current_amount"`
	Deadline                    date.Date `json:"deadline"`
	RequiredMonthlyContribution Money     `json:"required_monthly_contribution"`
	FundedPct                   Percent   `json:"funded_pct"`
}

type CashFlowInput struct {
	MonthlyIncome   Money `json:"monthly_income"`
	MonthlyExpenses Money `json:"monthly_expenses"`
	MonthlySurplus  Money `json:"monthly_surplus"`
}

type DebtInput struct {
	Name    string   `json:"name"`
	Type    DebtType `json:"type"`
	Balance Money    `json:"balance"`
	Rate    Percent  `json:"rate"`
	Payment Money    `json:"payment"`
}

type Derived struct {
	RequiredContribTotalMonthly Money `json:"required_contrib_total_monthly"`
	SurplusGapMonthly           Money `json:"surplus_gap_monthly"`
}

// Constraints are the policy settings the advisory must respect.
type Constraints struct {
	MinCashBufferMonths int            `json:"min_cash_buffer_months"`
	ComplianceMode      ComplianceMode `json:"compliance_mode"`
	// SmallDebtThreshold is expressed in the client's currency. Zero means the validator's
	// policy applies.
	SmallDebtThreshold Money `json:"small_debt_threshold"`
}

// KBRef is a knowledge base document the model may cite by ID.
type KBRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// KeyMetrics are the four figures the executive summary must reproduce exactly.
type KeyMetrics struct {
	NetWorth                    Money `json:"net_worth"`
	MonthlySurplus              Money `json:"monthly_surplus"`
	RequiredContribTotalMonthly Money `json:"required_contrib_total_monthly"`
	SurplusGapMonthly           Money `json:"surplus_gap_monthly"`
}

// KeyMetrics returns the figures expected in the output's key metrics.
func (in *PlanInputs) KeyMetrics() KeyMetrics {
	return KeyMetrics{
		NetWorth:                    in.Snapshot.NetWorth,
		MonthlySurplus:              in.CashFlow.MonthlySurplus,
		RequiredContribTotalMonthly: in.Derived.RequiredContribTotalMonthly,
		SurplusGapMonthly:           in.Derived.SurplusGapMonthly,
	}
}

// CashBufferMonths returns how many months of expenses the liquid net worth covers.
//
// The net worth stands in for the liquid net worth when the latter is unknown. It returns false
// when there are no expenses to cover.
func (in *PlanInputs) CashBufferMonths() (decimal.Decimal, bool) {
	expenses := in.CashFlow.MonthlyExpenses
	if !expenses.IsPositive() {
		return decimal.Zero, false
	}
	liquid := in.Snapshot.NetWorth
	if in.Snapshot.LiquidNetWorth != nil {
		liquid = *in.Snapshot.LiquidNetWorth
	}
	return liquid.Ratio(expenses), true
}

// KBIDs returns the set of citable document IDs.
func (in *PlanInputs) KBIDs() map[string]bool {
	ids := make(map[string]bool, len(in.KBContext))
	for _, ref := range in.KBContext {
		ids[ref.ID] = true
	}
	return ids
}

// AuthorizedNumbers returns every money figure present in the inputs, sorted and unique.
//
// Absolute values are included so that a negative gap can be written as a shortfall. The small
// debt threshold counts as an input figure, the prompt states it.
func (in *PlanInputs) AuthorizedNumbers() []decimal.Decimal {
	var all []Money
	add := func(ms ...Money) { all = append(all, ms...) }

	s := in.Snapshot
	add(s.NetWorth, s.TotalAssets, s.TotalLiabilities)
	if s.LiquidNetWorth != nil {
		add(*s.LiquidNetWorth)
	}
	for _, g := range in.Goals {
		add(g.TargetAmount, g.CurrentAmount, g.RequiredMonthlyContribution)
	}
	add(in.CashFlow.MonthlyIncome, in.CashFlow.MonthlyExpenses, in.CashFlow.MonthlySurplus)
	for _, d := range in.Debts {
		add(d.Balance, d.Payment)
	}
	if in.PlanOutputs != nil {
		for _, c := range in.PlanOutputs.ContributionPlan {
			add(c.Monthly)
		}
	}
	add(in.Derived.RequiredContribTotalMonthly, in.Derived.SurplusGapMonthly)
	if t := in.Constraints.SmallDebtThreshold; t.IsPositive() {
		add(t)
	}

	var numbers []decimal.Decimal
	for _, m := range all {
		numbers = append(numbers, m.Decimal(), m.Decimal().Abs())
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i].LessThan(numbers[j]) })
	unique := numbers[:0]
	for i, n := range numbers {
		if i > 0 && n.Equal(unique[len(unique)-1]) {
			continue
		}
		unique = append(unique, n)
	}
	return unique
}

// Builder turns a stored Profile into PlanInputs.
type Builder struct {
	// Currency is used when the client has none.
	Currency string
	// Constraints are the policy defaults, the profile's preferences may override them.
	Constraints Constraints
}

// Build computes the PlanInputs for p, allowing citations of kb.
//
// It fails with an *IncompleteError (matching ErrInputIncomplete) listing every missing figure,
// rather than assuming a value for it.
func (b Builder) Build(p *Profile, kb []KBRef) (*PlanInputs, error) {
	if p == nil {
		return nil, fmt.Errorf("no profile: %w", ErrInputIncomplete)
	}
	var missing []string
	need := func(ok bool, field string, args ...any) {
		if !ok {
			missing = append(missing, fmt.Sprintf(field, args...))
		}
	}

	currency := p.Client.Currency
	if currency == "" {
		currency = b.Currency
	}
	need(currency != "", "client.currency")
	need(p.Client.RiskBand != "", "client.risk_band")
	need(!p.AsOf.IsZero(), "as_of")
	need(len(p.Accounts) > 0, "accounts")
	for i, a := range p.Accounts {
		need(a.Type != "", "accounts[%d].type", i)
		need(a.Balance != nil, "accounts[%d].balance", i)
	}
	for i, d := range p.Debts {
		need(d.Type != "", "debts[%d].type", i)
		need(d.Balance != nil, "debts[%d].balance", i)
		need(d.Rate != nil, "debts[%d].rate", i)
		need(d.Payment != nil, "debts[%d].payment", i)
	}
	for i, g := range p.Goals {
		need(g.Target != nil, "goals[%d].target", i)
		need(g.Current != nil, "goals[%d].current", i)
		need(!g.Deadline.IsZero() || g.MonthlyContribution != nil, "goals[%d].deadline", i)
	}
	need(p.CashFlow.MonthlyIncome != nil, "cash_flow.monthly_income")
	need(p.CashFlow.MonthlyExpenses != nil, "cash_flow.monthly_expenses")
	if p.Plan != nil {
		need(p.Plan.SuccessProbability != nil, "plan_outputs.monte_carlo_success_probability")
	}

	constraints := b.Constraints
	if p.Preferences.MinCashBufferMonths != nil {
		constraints.MinCashBufferMonths = *p.Preferences.MinCashBufferMonths
	}
	if constraints.SmallDebtThreshold.IsPositive() {
		constraints.SmallDebtThreshold = constraints.SmallDebtThreshold.WithCurrency(currency)
	}
	need(constraints.ComplianceMode != "", "constraints.compliance_mode")
	need(constraints.MinCashBufferMonths >= 0, "constraints.min_cash_buffer_months")

	if len(missing) > 0 {
		return nil, &IncompleteError{UserID: p.UserID, Fields: missing}
	}

	// From here on every required pointer is set.
	amount := func(m *Money) Money { return m.WithCurrency(currency).Round() }
	zero := M(0, currency)

	in := &PlanInputs{
		Client: ClientInfo{
			UserID:   p.UserID,
			Name:     p.Client.Name,
			RiskBand: p.Client.RiskBand,
			Currency: currency,
		},
		Constraints: constraints,
		KBContext:   append([]KBRef(nil), kb...),
	}

	assets, liquid := zero, zero
	for _, a := range p.Accounts {
		assets = assets.Add(amount(a.Balance))
		if a.Type.Liquid() {
			liquid = liquid.Add(amount(a.Balance))
		}
	}

	liabilities, revolving, payments := zero, zero, zero
	for _, d := range p.Debts {
		in.Debts = append(in.Debts, DebtInput{
			Name:    d.Name,
			Type:    d.Type,
			Balance: amount(d.Balance),
			Rate:    *d.Rate,
			Payment: amount(d.Payment),
		})
		liabilities = liabilities.Add(amount(d.Balance))
		payments = payments.Add(amount(d.Payment))
		if d.Type == CreditCard {
			revolving = revolving.Add(amount(d.Balance))
		}
	}

	income := amount(p.CashFlow.MonthlyIncome)
	expenses := amount(p.CashFlow.MonthlyExpenses)
	surplus := income.Sub(expenses)
	in.CashFlow = CashFlowInput{
		MonthlyIncome:   income,
		MonthlyExpenses: expenses,
		MonthlySurplus:  surplus,
	}

	liquidNetWorth := liquid.Sub(revolving)
	in.Snapshot = Snapshot{
		AsOf:             p.AsOf,
		NetWorth:         assets.Sub(liabilities),
		LiquidNetWorth:   &liquidNetWorth,
		TotalAssets:      assets,
		TotalLiabilities: liabilities,
	}
	if income.IsPositive() {
		in.Snapshot.SavingsRate = ratio(surplus.Ratio(income))
		in.Snapshot.DebtToIncome = ratio(payments.Ratio(income))
	}

	required := zero
	for _, g := range p.Goals {
		goal := GoalInput{
			Name:          g.Name,
			TargetAmount:  amount(g.Target),
			CurrentAmount: amount(g.Current),
			Deadline:      g.Deadline,
		}
		goal.RequiredMonthlyContribution = requiredContribution(p.AsOf, goal, g.MonthlyContribution, currency)
		goal.FundedPct = 100
		if goal.TargetAmount.IsPositive() {
			goal.FundedPct = ratio(goal.CurrentAmount.Ratio(goal.TargetAmount))
		}
		required = required.Add(goal.RequiredMonthlyContribution)
		in.Goals = append(in.Goals, goal)
	}
	in.Derived = Derived{
		RequiredContribTotalMonthly: required,
		SurplusGapMonthly:           surplus.Sub(required),
	}

	if p.Plan != nil {
		plan := &PlanOutputs{
			TargetAllocation:   p.Plan.TargetAllocation,
			SuccessProbability: p.Plan.SuccessProbability,
		}
		for _, c := range p.Plan.ContributionPlan {
			plan.ContributionPlan = append(plan.ContributionPlan, Contribution{
				Goal:    c.Goal,
				Monthly: amount(&c.Monthly),
			})
		}
		in.PlanOutputs = plan
	}

	return in, nil
}

// requiredContribution returns the monthly amount that funds the goal by its deadline.
//
// An explicit contribution wins. Past the deadline the whole remaining amount is due.
func requiredContribution(asOf date.Date, g GoalInput, explicit *Money, currency string) Money {
	if explicit != nil {
		return explicit.WithCurrency(currency).Round()
	}
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if !remaining.IsPositive() {
		return M(0, currency)
	}
	months := asOf.MonthsUntil(g.Deadline)
	if months == 0 {
		return remaining
	}
	return M(remaining.Decimal().Div(decimal.NewFromInt(int64(months))).Ceil(), currency)
}
