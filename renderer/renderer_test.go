package renderer

import (
	"os"
	"strings"
	"testing"

	"github.com/etnz/advisory"
)

func usd(v int) advisory.Money { return advisory.M(v, "USD") }

func testInputs() *advisory.PlanInputs {
	return &advisory.PlanInputs{
		Client:   advisory.ClientInfo{UserID: "u1", Name: "Alex", Currency: "USD"},
		Snapshot: advisory.Snapshot{NetWorth: usd(500000)},
		CashFlow: advisory.CashFlowInput{MonthlySurplus: usd(3000)},
		Derived: advisory.Derived{
			RequiredContribTotalMonthly: usd(2500),
			SurplusGapMonthly:           usd(500),
		},
		KBContext: []advisory.KBRef{
			{ID: "KB-001", Title: "Building an emergency fund"},
			{ID: "KB-002", Title: "Paying down high-interest debt"},
		},
	}
}

func TestAdvisoryMarkdown(t *testing.T) {
	raw, err := os.ReadFile("testdata/advisory.json")
	if err != nil {
		t.Fatal(err)
	}
	out, err := advisory.ParseAdvisoryOutput(raw)
	if err != nil {
		t.Fatal(err)
	}

	got := AdvisoryMarkdown(out, testInputs())
	for _, want := range []string{
		"# Advisory plan for Alex",
		"| Net worth | $500,000.00 |",
		"| Surplus gap | $500.00 |",
		"1. **Pay off the Visa credit card**: Clear the $3,000 balance. See KB-002 (Paying down high-interest debt).",
		"2. **Automate the house fund**: Schedule a monthly transfer.\n",
		"### Q3: Tax efficiency",
		"- Check retirement contribution room.",
		"Mitigations:",
		"## Tax considerations",
		"References: KB-001, IRS-002",
		"*This plan is for educational purposes only and does not constitute financial advice.*",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("AdvisoryMarkdown() does not contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "error") {
		t.Errorf("AdvisoryMarkdown() reported a template error:\n%s", got)
	}
}

func TestReportMarkdown(t *testing.T) {
	r := advisory.Report{Results: []advisory.ValidationResult{
		{Audit: advisory.NumericAudit, Valid: false, Error: "key_metrics.net_worth is 600000, want 500000"},
		{Audit: advisory.CitationAudit, Valid: true},
	}}
	got := ReportMarkdown(r)
	for _, want := range []string{
		"# Validation report: rejected",
		"| numeric | ❌ | key_metrics.net_worth is 600000, want 500000 |",
		"| citation | ✅ |  |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ReportMarkdown() does not contain %q, got:\n%s", want, got)
		}
	}
}
