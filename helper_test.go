package advisory

import (
	"testing"

	"github.com/etnz/advisory/date"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// ptr is a helper for optional profile figures.
func ptr[T any](v T) *T { return &v }

// scenarioInputs returns the reference scenario: a $500,000 net worth, a $3,000 surplus of
// which $2,500 is required by goals, and a $3,000 credit card debt.
func scenarioInputs(t *testing.T) *PlanInputs {
	t.Helper()
	liquid := USD(40000)
	return &PlanInputs{
		Client: ClientInfo{UserID: "u1", Name: "Alex", RiskBand: "moderate", Currency: "USD"},
		Snapshot: Snapshot{
			AsOf:             date.MustParse("2025-01-01"),
			NetWorth:         USD(500000),
			LiquidNetWorth:   &liquid,
			TotalAssets:      USD(503000),
			TotalLiabilities: USD(3000),
			SavingsRate:      33.3,
			DebtToIncome:     1.7,
		},
		Goals: []GoalInput{{
			Name:                        "House down payment",
			TargetAmount:                USD(60000),
			CurrentAmount:               USD(30000),
			Deadline:                    date.MustParse("2026-01-01"),
			RequiredMonthlyContribution: USD(2500),
			FundedPct:                   50,
		}},
		CashFlow: CashFlowInput{
			MonthlyIncome:   USD(9000),
			MonthlyExpenses: USD(6000),
			MonthlySurplus:  USD(3000),
		},
		Debts: []DebtInput{{
			Name:    "Visa",
			Type:    CreditCard,
			Balance: USD(3000),
			Rate:    22.9,
			Payment: USD(150),
		}},
		Derived: Derived{
			RequiredContribTotalMonthly: USD(2500),
			SurplusGapMonthly:           USD(500),
		},
		Constraints: Constraints{MinCashBufferMonths: 3, ComplianceMode: Educational},
		KBContext: []KBRef{
			{ID: "KB-001", Title: "Emergency fund"},
			{ID: "KB-002", Title: "Paying down high interest debt"},
			{ID: "IRS-001", Title: "Retirement contribution limits"},
			{ID: "IRS-002", Title: "Health savings accounts"},
		},
	}
}

// scenarioOutput is a valid advisory for scenarioInputs.
const scenarioOutput = `{
  "executive_summary": {
    "overview": "Your net worth is $500,000 and you keep a monthly surplus of $3,000, which covers the $2,500 your goals require.",
    "key_metrics": {
      "net_worth": 500000,
      "monthly_surplus": 3000,
      "required_contrib_total_monthly": 2500,
      "surplus_gap_monthly": 500
    },
    "status_flags": {"on_track": true, "stabilize_first": false}
  },
  "priority_actions_30d": [
    {
      "title": "Pay off the Visa credit card",
      "detail": "Use cash savings to pay off the $3,000 balance this month and stop the 22.9% interest.",
      "exact_refs": ["KB-002"]
    },
    {
      "title": "Automate the house fund",
      "detail": "Schedule a $2,500 monthly transfer to the down payment account.",
      "exact_refs": ["KB-001"]
    }
  ],
  "strategy_12m": {
    "q1": {"focus": "Debt free", "actions": ["Keep the credit card at a zero balance."]},
    "q2": {"focus": "Emergency fund", "actions": ["Review the emergency fund against expenses."]},
    "q3": {"focus": "Tax efficiency", "actions": ["Check retirement contribution room."]},
    "q4": {"focus": "Review", "actions": ["Review progress on the house goal."]}
  },
  "risk_management": {
    "risks": ["Job loss would stop the house savings."],
    "mitigations": ["Keep six months of expenses in cash."],
    "citations": ["KB-001"]
  },
  "tax_considerations": {
    "ideas": ["Consider funding a health savings account."],
    "citations": ["IRS-001", "IRS-002"]
  },
  "disclaimer": "This plan is for educational purposes only and does not constitute financial advice."
}`

func mustParse(t *testing.T, raw string) *AdvisoryOutput {
	t.Helper()
	out, err := ParseAdvisoryOutput([]byte(raw))
	if err != nil {
		t.Fatalf("ParseAdvisoryOutput() error = %v", err)
	}
	return out
}
