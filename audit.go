package advisory

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Audit names one of the validation passes applied to an AdvisoryOutput.
type Audit string

const (
	NumericAudit      Audit = "numeric"
	CitationAudit     Audit = "citation"
	BusinessRuleAudit Audit = "business_rule"
	ComplianceAudit   Audit = "compliance"
)

// Audits lists every audit in the order they run.
var Audits = []Audit{NumericAudit, CitationAudit, BusinessRuleAudit, ComplianceAudit}

// ValidationResult is the outcome of a single audit.
type ValidationResult struct {
	Audit Audit  `json:"audit"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func pass(a Audit) ValidationResult { return ValidationResult{Audit: a, Valid: true} }

func fail(a Audit, errs []string) ValidationResult {
	if len(errs) == 0 {
		return pass(a)
	}
	return ValidationResult{Audit: a, Error: strings.Join(errs, "; ")}
}

// Report gathers the results of all audits of one output.
type Report struct {
	Results []ValidationResult `json:"results"`
}

// Valid is true when every audit passed.
func (r Report) Valid() bool {
	for _, res := range r.Results {
		if !res.Valid {
			return false
		}
	}
	return true
}

// Failed returns the failed audits' results.
func (r Report) Failed() []ValidationResult {
	var failed []ValidationResult
	for _, res := range r.Results {
		if !res.Valid {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err returns an *AuditError describing the failures, or nil if the report is valid.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &AuditError{Failures: failed}
}

// Result returns the result of audit a.
func (r Report) Result(a Audit) (ValidationResult, bool) {
	for _, res := range r.Results {
		if res.Audit == a {
			return res, true
		}
	}
	return ValidationResult{}, false
}

// Policy holds the business rules settings.
type Policy struct {
	// SmallDebtThreshold is the credit card balance under which an immediate payoff is expected.
	SmallDebtThreshold Money
}

// DefaultPolicy returns the policy with a $5,000 small debt threshold.
func DefaultPolicy() Policy {
	return Policy{SmallDebtThreshold: M(5000, "USD")}
}

// Threshold returns the small debt threshold applying to in: the one of its constraints, or
// the policy's in the client's currency.
func (p Policy) Threshold(in *PlanInputs) Money {
	if t := in.Constraints.SmallDebtThreshold; t.IsPositive() {
		return t
	}
	if in.Client.Currency == "" {
		return p.SmallDebtThreshold
	}
	return p.SmallDebtThreshold.WithCurrency(in.Client.Currency)
}

// Apply returns in with the policy's threshold set in its constraints. in is returned as is when
// it already carries one, otherwise a shallow copy is made.
func (p Policy) Apply(in *PlanInputs) *PlanInputs {
	if in.Constraints.SmallDebtThreshold.IsPositive() || !p.SmallDebtThreshold.IsPositive() {
		return in
	}
	c := *in
	c.Constraints.SmallDebtThreshold = p.Threshold(in)
	return &c
}

// Validator runs the four audits.
type Validator struct {
	Policy Policy
}

// NewValidator returns a Validator enforcing p.
func NewValidator(p Policy) *Validator { return &Validator{Policy: p} }

// Validate runs every audit of out against in. All audits run, even after a failure, so that
// a correction prompt can mention every problem at once.
func (v *Validator) Validate(in *PlanInputs, out *AdvisoryOutput) Report {
	in = v.Policy.Apply(in)
	return Report{Results: []ValidationResult{
		CheckNumbers(in, out),
		CheckCitations(in, out),
		v.Policy.CheckBusinessRules(in, out),
		CheckCompliance(in, out),
	}}
}

// CheckNumbers verifies that the key metrics are exactly the input figures, and that every
// dollar amount written in prose is one of the input figures.
func CheckNumbers(in *PlanInputs, out *AdvisoryOutput) ValidationResult {
	var errs []string
	want, got := in.KeyMetrics(), out.ExecutiveSummary.KeyMetrics
	for _, f := range []struct {
		name      string
		got, want Money
	}{
		{"net_worth", got.NetWorth, want.NetWorth},
		{"monthly_surplus", got.MonthlySurplus, want.MonthlySurplus},
		{"required_contrib_total_monthly", got.RequiredContribTotalMonthly, want.RequiredContribTotalMonthly},
		{"surplus_gap_monthly", got.SurplusGapMonthly, want.SurplusGapMonthly},
	} {
		if !f.got.Decimal().Equal(f.want.Decimal()) {
			errs = append(errs, fmt.Sprintf("key_metrics.%s is %s, want %s", f.name, f.got.Decimal(), f.want.Decimal()))
		}
	}

	authorized := in.AuthorizedNumbers()
	isAuthorized := func(n decimal.Decimal) bool {
		i := sort.Search(len(authorized), func(i int) bool { return authorized[i].GreaterThanOrEqual(n) })
		return i < len(authorized) && authorized[i].Equal(n)
	}
	for _, p := range out.prose() {
		for _, m := range amountRe.FindAllString(p.text, -1) {
			n, err := parseAmount(m)
			if err != nil || !isAuthorized(n) {
				errs = append(errs, fmt.Sprintf("%s mentions %q which is not an input figure", p.field, m))
			}
		}
	}
	return fail(NumericAudit, errs)
}

// amountRe matches dollar amounts like $3,000, $1250.50, $12k or $1.2M.
var amountRe = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?(?:\s?[kKmM]\b)?`)

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	mult := decimal.NewFromInt(1)
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult = decimal.NewFromInt(1_000)
	case strings.HasSuffix(s, "m"), strings.HasSuffix(s, "M"):
		mult = decimal.NewFromInt(1_000_000)
	}
	s = strings.TrimSpace(strings.TrimRight(s, "kKmM"))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Mul(mult), nil
}

type prose struct {
	field string
	text  string
}

// prose returns the free text fields of the output, the disclaimer excepted.
func (o *AdvisoryOutput) prose() []prose {
	ps := []prose{{"executive_summary.overview", o.ExecutiveSummary.Overview}}
	for i, a := range o.PriorityActions {
		ps = append(ps,
			prose{fmt.Sprintf("priority_actions_30d[%d].title", i), a.Title},
			prose{fmt.Sprintf("priority_actions_30d[%d].detail", i), a.Detail},
		)
	}
	for i, q := range o.Strategy.Quarters() {
		ps = append(ps, prose{fmt.Sprintf("strategy_12m.q%d.focus", i+1), q.Focus})
		for j, a := range q.Actions {
			ps = append(ps, prose{fmt.Sprintf("strategy_12m.q%d.actions[%d]", i+1, j), a})
		}
	}
	list := func(field string, items []string) {
		for i, s := range items {
			ps = append(ps, prose{fmt.Sprintf("%s[%d]", field, i), s})
		}
	}
	list("risk_management.risks", o.RiskManagement.Risks)
	list("risk_management.mitigations", o.RiskManagement.Mitigations)
	list("tax_considerations.ideas", o.TaxConsiderations.Ideas)
	return ps
}

// CheckCitations verifies that every cited ID is part of the inputs' knowledge base context.
func CheckCitations(in *PlanInputs, out *AdvisoryOutput) ValidationResult {
	allowed := in.KBIDs()
	unknown := map[string]bool{}
	for _, id := range out.Citations() {
		if !allowed[id] {
			unknown[id] = true
		}
	}
	if len(unknown) == 0 {
		return pass(CitationAudit)
	}
	ids := make([]string, 0, len(unknown))
	for id := range unknown {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fail(CitationAudit, []string{fmt.Sprintf("unknown citation id(s) %s, allowed ids are %s",
		strings.Join(ids, ", "), strings.Join(sortedKeys(allowed), ", "))})
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	creditCardRe = regexp.MustCompile(`(?i)credit[\s-]?card`)
	payoffRe     = regexp.MustCompile(`(?i)\bpay(ing)?[\s-]*(it\s+|this\s+|the\s+balance\s+)?(off|down)\b|\bpayoff\b|\beliminat|\bclear(ing)?\b`)
)

// CheckBusinessRules verifies that the output reflects the policy rules:
//   - a credit card balance under the small debt threshold calls for a 30-day payoff action.
//   - a cash buffer under the minimum number of months calls for the stabilize-first flag.
//
// With a single small credit card, a payoff action about "the credit card" is enough. With
// several, each named card needs an action naming it.
func (p Policy) CheckBusinessRules(in *PlanInputs, out *AdvisoryOutput) ValidationResult {
	var errs []string
	threshold := p.Threshold(in)
	var small []DebtInput
	for _, d := range in.Debts {
		if d.Type == CreditCard && d.Balance.IsPositive() && d.Balance.Decimal().LessThan(threshold.Decimal()) {
			small = append(small, d)
		}
	}
	for _, d := range small {
		byName := len(small) > 1 && d.Name != ""
		if !recommendsPayoff(out.PriorityActions, d, byName) {
			errs = append(errs, fmt.Sprintf("credit card debt %q of %s is below the %s small debt threshold but no 30-day priority action recommends paying it off",
				d.Name, d.Balance, threshold))
		}
	}

	if months, ok := in.CashBufferMonths(); ok {
		minimum := decimal.NewFromInt(int64(in.Constraints.MinCashBufferMonths))
		if months.LessThan(minimum) && !out.ExecutiveSummary.StatusFlags.StabilizeFirst {
			errs = append(errs, fmt.Sprintf("cash buffer covers %s months of expenses, below the %d months minimum, but status_flags.stabilize_first is false",
				months.StringFixed(1), in.Constraints.MinCashBufferMonths))
		}
	}
	return fail(BusinessRuleAudit, errs)
}

// recommendsPayoff reports whether one of the actions is about paying off debt d. When byName is
// set the action must name the debt.
func recommendsPayoff(actions []PriorityAction, d DebtInput, byName bool) bool {
	for _, a := range actions {
		text := a.Title + " " + a.Detail
		mentions := d.Name != "" && strings.Contains(strings.ToLower(text), strings.ToLower(d.Name))
		if !byName {
			mentions = mentions || creditCardRe.MatchString(text)
		}
		if mentions && payoffRe.MatchString(text) {
			return true
		}
	}
	return false
}

// ComplianceMode selects the disclaimer requirements.
type ComplianceMode string

const (
	// Educational requires the content to be framed as educational and not financial advice.
	Educational ComplianceMode = "educational"
	// Strict also requires a recommendation to consult a qualified professional.
	Strict ComplianceMode = "strict"
)

var (
	educationalRe  = regexp.MustCompile(`(?i)\beducational\b`)
	notAdviceRe    = regexp.MustCompile(`(?i)\b(not|never|no)\b[^.]{0,40}\b(financial|investment)\s+advice\b`)
	professionalRe = regexp.MustCompile(`(?i)\bconsult\b[^.]{0,60}\b(qualified|licensed|certified)\b`)
)

// CheckCompliance verifies that the disclaimer satisfies the inputs' compliance mode.
func CheckCompliance(in *PlanInputs, out *AdvisoryOutput) ValidationResult {
	d := strings.Join(strings.Fields(out.Disclaimer), " ")
	if d == "" {
		return fail(ComplianceAudit, []string{"disclaimer is missing"})
	}
	mode := in.Constraints.ComplianceMode
	var errs []string
	switch mode {
	case Educational, Strict:
	default:
		return fail(ComplianceAudit, []string{fmt.Sprintf("unknown compliance mode %q", mode)})
	}
	if !educationalRe.MatchString(d) {
		errs = append(errs, "disclaimer does not state that the content is educational")
	}
	if !notAdviceRe.MatchString(d) {
		errs = append(errs, "disclaimer does not state that the content is not financial advice")
	}
	if mode == Strict && !professionalRe.MatchString(d) {
		errs = append(errs, "disclaimer does not recommend consulting a qualified professional")
	}
	return fail(ComplianceAudit, errs)
}
