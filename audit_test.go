package advisory

import (
	"strings"
	"testing"
)

func TestValidate_Scenario(t *testing.T) {
	in := scenarioInputs(t)
	out := mustParse(t, scenarioOutput)

	report := NewValidator(DefaultPolicy()).Validate(in, out)
	if !report.Valid() {
		t.Fatalf("Validate() = %v, want valid", report.Err())
	}
	if len(report.Results) != len(Audits) {
		t.Errorf("Validate() returned %d results, want %d", len(report.Results), len(Audits))
	}
}

func TestValidate_ChangedNetWorthFailsOnlyNumeric(t *testing.T) {
	in := scenarioInputs(t)
	out := mustParse(t, strings.Replace(scenarioOutput, `"net_worth": 500000`, `"net_worth": 600000`, 1))

	report := NewValidator(DefaultPolicy()).Validate(in, out)
	if report.Valid() {
		t.Fatal("Validate() is valid, want a numeric failure")
	}
	for _, res := range report.Results {
		if res.Audit == NumericAudit {
			if res.Valid {
				t.Errorf("numeric audit passed, want failure")
			}
			if !strings.Contains(res.Error, "600000") || !strings.Contains(res.Error, "net_worth") {
				t.Errorf("numeric audit error = %q, want it to name net_worth and 600000", res.Error)
			}
			continue
		}
		if !res.Valid {
			t.Errorf("%s audit failed: %s", res.Audit, res.Error)
		}
	}
	var auditErr *AuditError
	if err := report.Err(); err == nil {
		t.Fatal("Err() = nil")
	} else if ae, ok := err.(*AuditError); !ok {
		t.Errorf("Err() = %T, want *AuditError", err)
	} else {
		auditErr = ae
	}
	if auditErr != nil && (!auditErr.Failed(NumericAudit) || auditErr.Failed(CitationAudit)) {
		t.Errorf("AuditError.Failures = %v", auditErr.Failures)
	}
}

func TestCheckNumbers_EachKeyMetric(t *testing.T) {
	testCases := []struct {
		field string
		from  string
		to    string
	}{
		{"net_worth", `"net_worth": 500000`, `"net_worth": 500001`},
		{"monthly_surplus", `"monthly_surplus": 3000`, `"monthly_surplus": 3000.5`},
		{"required_contrib_total_monthly", `"required_contrib_total_monthly": 2500`, `"required_contrib_total_monthly": 2400`},
		{"surplus_gap_monthly", `"surplus_gap_monthly": 500`, `"surplus_gap_monthly": -500`},
	}
	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			out := mustParse(t, strings.Replace(scenarioOutput, tc.from, tc.to, 1))
			res := CheckNumbers(scenarioInputs(t), out)
			if res.Valid {
				t.Fatal("CheckNumbers() passed, want failure")
			}
			if !strings.Contains(res.Error, "key_metrics."+tc.field) {
				t.Errorf("CheckNumbers() error = %q, want it to name %s", res.Error, tc.field)
			}
			if strings.Count(res.Error, "key_metrics.") != 1 {
				t.Errorf("CheckNumbers() error = %q, want a single key metric named", res.Error)
			}
		})
	}
}

func TestCheckNumbers_EqualDecimalForms(t *testing.T) {
	out := mustParse(t, strings.Replace(scenarioOutput, `"net_worth": 500000`, `"net_worth": 500000.00`, 1))
	if res := CheckNumbers(scenarioInputs(t), out); !res.Valid {
		t.Errorf("CheckNumbers() = %q, want 500000.00 to equal 500000", res.Error)
	}
}

func TestCheckNumbers_Prose(t *testing.T) {
	testCases := []struct {
		name    string
		detail  string
		wantErr string
	}{
		{name: "authorized", detail: "Pay off the $3,000 balance."},
		{name: "authorized with cents", detail: "Pay off the $3,000.00 balance."},
		{name: "shorthand", detail: "Move $3k to savings."},
		{name: "no amount", detail: "Pay it off with 22.9% interest saved."},
		{name: "invented", detail: "Pay off the $3,100 balance.", wantErr: `"$3,100"`},
		{name: "invented shorthand", detail: "Save $1.2M by retirement.", wantErr: `"$1.2M"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := mustParse(t, scenarioOutput)
			out.PriorityActions[0].Detail = tc.detail
			res := CheckNumbers(scenarioInputs(t), out)
			if tc.wantErr == "" {
				if !res.Valid {
					t.Errorf("CheckNumbers() = %q, want valid", res.Error)
				}
				return
			}
			if res.Valid {
				t.Fatalf("CheckNumbers() passed, want failure")
			}
			if !strings.Contains(res.Error, tc.wantErr) || !strings.Contains(res.Error, "priority_actions_30d[0].detail") {
				t.Errorf("CheckNumbers() error = %q, want it to name %s", res.Error, tc.wantErr)
			}
		})
	}
}

func TestValidate_ThresholdInProse(t *testing.T) {
	in := scenarioInputs(t)
	out := mustParse(t, scenarioOutput)
	out.PriorityActions[0].Detail += " It is under the $5,000 small debt threshold."

	if res := CheckNumbers(in, out); res.Valid {
		t.Errorf("CheckNumbers() passed without a threshold in the constraints")
	}
	report := NewValidator(DefaultPolicy()).Validate(in, out)
	if !report.Valid() {
		t.Errorf("Validate() failed = %+v, want the policy threshold authorized", report.Failed())
	}

	in.Constraints.SmallDebtThreshold = USD(5000)
	if res := CheckNumbers(in, out); !res.Valid {
		t.Errorf("CheckNumbers() = %q, want the constraints threshold authorized", res.Error)
	}
}

func TestCheckCitations(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*AdvisoryOutput)
		wantErr []string
	}{
		{
			name:   "all known",
			mutate: func(*AdvisoryOutput) {},
		},
		{
			name:    "foreign id in a priority action",
			mutate:  func(o *AdvisoryOutput) { o.PriorityActions[1].ExactRefs = []string{"KB-999"} },
			wantErr: []string{"KB-999"},
		},
		{
			name:    "foreign id in risk management",
			mutate:  func(o *AdvisoryOutput) { o.RiskManagement.Citations = append(o.RiskManagement.Citations, "BLOG-7") },
			wantErr: []string{"BLOG-7"},
		},
		{
			name: "foreign ids in tax considerations, reported once",
			mutate: func(o *AdvisoryOutput) {
				o.TaxConsiderations.Citations = []string{"IRS-003", "IRS-003", "irs-001"}
			},
			wantErr: []string{"IRS-003, irs-001"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := mustParse(t, scenarioOutput)
			tc.mutate(out)
			res := CheckCitations(scenarioInputs(t), out)
			if len(tc.wantErr) == 0 {
				if !res.Valid {
					t.Errorf("CheckCitations() = %q, want valid", res.Error)
				}
				return
			}
			if res.Valid {
				t.Fatal("CheckCitations() passed, want failure")
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(res.Error, want) {
					t.Errorf("CheckCitations() error = %q, want it to contain %q", res.Error, want)
				}
			}
		})
	}
}

func TestCheckBusinessRules_CreditCardPayoff(t *testing.T) {
	policy := DefaultPolicy()
	testCases := []struct {
		name    string
		balance float64
		actions []PriorityAction
		wantErr bool
	}{
		{
			name:    "payoff recommended",
			balance: 3000,
			actions: []PriorityAction{{Title: "Pay off the credit card", Detail: "Clear the balance."}},
		},
		{
			name:    "payoff by name",
			balance: 3000,
			actions: []PriorityAction{{Title: "Eliminate the Visa balance"}},
		},
		{
			name:    "payoff not recommended",
			balance: 3000,
			actions: []PriorityAction{{Title: "Open a brokerage account"}},
			wantErr: true,
		},
		{
			name:    "credit card mentioned without payoff",
			balance: 3000,
			actions: []PriorityAction{{Title: "Review the credit card statement"}},
			wantErr: true,
		},
		{
			name:    "no actions at all",
			balance: 4999,
			wantErr: true,
		},
		{
			name:    "at the threshold",
			balance: 5000,
			actions: []PriorityAction{{Title: "Open a brokerage account"}},
		},
		{
			name:    "zero balance",
			balance: 0,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := scenarioInputs(t)
			in.Debts[0].Balance = USD(tc.balance)
			out := mustParse(t, scenarioOutput)
			out.PriorityActions = tc.actions

			res := policy.CheckBusinessRules(in, out)
			if res.Valid == tc.wantErr {
				t.Fatalf("CheckBusinessRules() = %+v, wantErr %v", res, tc.wantErr)
			}
			if tc.wantErr {
				if !strings.Contains(res.Error, "credit card") || !strings.Contains(res.Error, "$5,000.00") {
					t.Errorf("CheckBusinessRules() error = %q, want it to mention credit card and the threshold", res.Error)
				}
			}
		})
	}
}

func TestCheckBusinessRules_SeveralSmallCards(t *testing.T) {
	testCases := []struct {
		name    string
		actions []PriorityAction
		wantErr string
	}{
		{
			name:    "each card named",
			actions: []PriorityAction{{Title: "Pay off the Visa card"}, {Title: "Pay off the Amex card"}},
		},
		{
			name:    "both named in one action",
			actions: []PriorityAction{{Title: "Pay off the Visa and Amex balances"}},
		},
		{
			name:    "generic payoff",
			actions: []PriorityAction{{Title: "Pay off the credit card"}},
			wantErr: `"Visa"`,
		},
		{
			name:    "one card forgotten",
			actions: []PriorityAction{{Title: "Pay off the Visa credit card"}},
			wantErr: `"Amex"`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := scenarioInputs(t)
			in.Debts = append(in.Debts, DebtInput{Name: "Amex", Type: CreditCard, Balance: USD(1200), Rate: 19.9, Payment: USD(60)})
			out := mustParse(t, scenarioOutput)
			out.PriorityActions = tc.actions

			res := DefaultPolicy().CheckBusinessRules(in, out)
			if tc.wantErr == "" {
				if !res.Valid {
					t.Errorf("CheckBusinessRules() = %q, want valid", res.Error)
				}
				return
			}
			if res.Valid || !strings.Contains(res.Error, tc.wantErr) {
				t.Errorf("CheckBusinessRules() = %+v, want an error naming %s", res, tc.wantErr)
			}
		})
	}
}

func TestCheckBusinessRules_OtherDebtTypesIgnored(t *testing.T) {
	in := scenarioInputs(t)
	in.Debts[0].Type = StudentLoan
	out := mustParse(t, scenarioOutput)
	out.PriorityActions = nil
	if res := DefaultPolicy().CheckBusinessRules(in, out); !res.Valid {
		t.Errorf("CheckBusinessRules() = %q, want valid", res.Error)
	}
}

func TestCheckBusinessRules_StabilizeFirst(t *testing.T) {
	testCases := []struct {
		name      string
		liquid    *Money
		netWorth  float64
		expenses  float64
		stabilize bool
		wantErr   bool
	}{
		{name: "enough buffer", liquid: ptr(USD(18000)), expenses: 6000},
		{name: "short buffer flagged", liquid: ptr(USD(17999)), expenses: 6000, stabilize: true},
		{name: "short buffer not flagged", liquid: ptr(USD(6000)), expenses: 6000, wantErr: true},
		{name: "negative buffer not flagged", liquid: ptr(USD(-1000)), expenses: 6000, wantErr: true},
		{name: "net worth stands in for liquid", netWorth: 12000, expenses: 6000, wantErr: true},
		{name: "no expenses", liquid: ptr(USD(0))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := scenarioInputs(t)
			in.Snapshot.LiquidNetWorth = tc.liquid
			if tc.netWorth != 0 {
				in.Snapshot.NetWorth = USD(tc.netWorth)
			}
			in.CashFlow.MonthlyExpenses = USD(tc.expenses)
			out := mustParse(t, scenarioOutput)
			out.ExecutiveSummary.StatusFlags.StabilizeFirst = tc.stabilize

			res := DefaultPolicy().CheckBusinessRules(in, out)
			if res.Valid == tc.wantErr {
				t.Fatalf("CheckBusinessRules() = %+v, wantErr %v", res, tc.wantErr)
			}
			if tc.wantErr && !strings.Contains(res.Error, "stabilize_first") {
				t.Errorf("CheckBusinessRules() error = %q, want it to name stabilize_first", res.Error)
			}
		})
	}
}

func TestCheckCompliance(t *testing.T) {
	testCases := []struct {
		name       string
		mode       ComplianceMode
		disclaimer string
		wantErr    string
	}{
		{
			name:       "educational",
			mode:       Educational,
			disclaimer: "For educational purposes only... this does not constitute financial advice.",
		},
		{
			name:       "missing",
			mode:       Educational,
			disclaimer: "  ",
			wantErr:    "missing",
		},
		{
			name:       "no educational framing",
			mode:       Educational,
			disclaimer: "This does not constitute financial advice.",
			wantErr:    "educational",
		},
		{
			name:       "no advice disclaimer",
			mode:       Educational,
			disclaimer: "This content is educational.",
			wantErr:    "not financial advice",
		},
		{
			name:       "strict without professional",
			mode:       Strict,
			disclaimer: "For educational purposes only, not financial advice.",
			wantErr:    "qualified professional",
		},
		{
			name:       "strict",
			mode:       Strict,
			disclaimer: "For educational purposes only, not financial advice. Consult a licensed advisor before acting.",
		},
		{
			name:       "unknown mode",
			mode:       "lenient",
			disclaimer: "For educational purposes only, not financial advice.",
			wantErr:    "unknown compliance mode",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := scenarioInputs(t)
			in.Constraints.ComplianceMode = tc.mode
			out := mustParse(t, scenarioOutput)
			out.Disclaimer = tc.disclaimer

			res := CheckCompliance(in, out)
			if tc.wantErr == "" {
				if !res.Valid {
					t.Errorf("CheckCompliance() = %q, want valid", res.Error)
				}
				return
			}
			if res.Valid || !strings.Contains(res.Error, tc.wantErr) {
				t.Errorf("CheckCompliance() = %+v, want error containing %q", res, tc.wantErr)
			}
		})
	}
}
