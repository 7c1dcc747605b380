package advisory

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAdvisoryOutput(t *testing.T) {
	out := mustParse(t, scenarioOutput)

	if got, want := out.ExecutiveSummary.KeyMetrics.NetWorth.Decimal().String(), "500000"; got != want {
		t.Errorf("net_worth = %s, want %s", got, want)
	}
	if !out.ExecutiveSummary.StatusFlags.OnTrack || out.ExecutiveSummary.StatusFlags.StabilizeFirst {
		t.Errorf("status_flags = %+v", out.ExecutiveSummary.StatusFlags)
	}
	if got, want := out.Strategy.Quarters()[3].Focus, "Review"; got != want {
		t.Errorf("q4 focus = %q, want %q", got, want)
	}
	wantCitations := []string{"KB-002", "KB-001", "KB-001", "IRS-001", "IRS-002"}
	if diff := cmp.Diff(wantCitations, out.Citations()); diff != "" {
		t.Errorf("Citations() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAdvisoryOutput_Fenced(t *testing.T) {
	raw := "Here is the plan:\n```json\n" + scenarioOutput + "\n```\n"
	fenced := mustParse(t, raw)
	plain := mustParse(t, scenarioOutput)
	if diff := cmp.Diff(plain.PriorityActions, fenced.PriorityActions); diff != "" {
		t.Errorf("fenced output mismatch (-plain +fenced):\n%s", diff)
	}
}

func TestParseAdvisoryOutput_TrailingProse(t *testing.T) {
	raw := "```json\n" + scenarioOutput + "\n```\nLet me know if you want the {q1} details."
	out, err := ParseAdvisoryOutput([]byte(raw))
	if err != nil {
		t.Fatalf("ParseAdvisoryOutput() error = %v", err)
	}
	if got, want := out.Disclaimer, mustParse(t, scenarioOutput).Disclaimer; got != want {
		t.Errorf("Disclaimer = %q, want %q", got, want)
	}
}

func TestParseAdvisoryOutput_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		wantPath string
	}{
		{
			name: "not json",
			raw:  "I cannot help with that.",
		},
		{
			name: "truncated",
			raw:  scenarioOutput[:200],
		},
		{
			name:     "missing key metric",
			raw:      strings.Replace(scenarioOutput, `"surplus_gap_monthly": 500`, `"surplus_gap": 500`, 1),
			wantPath: "$.executive_summary.key_metrics.surplus_gap_monthly",
		},
		{
			name:     "key metric as a string",
			raw:      strings.Replace(scenarioOutput, `"net_worth": 500000`, `"net_worth": "500000"`, 1),
			wantPath: "$.executive_summary.key_metrics.net_worth",
		},
		{
			name:     "missing quarter",
			raw:      strings.Replace(scenarioOutput, `"q4"`, `"q5"`, 1),
			wantPath: "$.strategy_12m.q4",
		},
		{
			name:     "empty quarter",
			raw:      strings.Replace(scenarioOutput, `"q2": {"focus": "Emergency fund", "actions": ["Review the emergency fund against expenses."]}`, `"q2": {}`, 1),
			wantPath: "$.strategy_12m.q2.focus",
		},
		{
			name:     "quarter actions not a list",
			raw:      strings.Replace(scenarioOutput, `"actions": ["Review the emergency fund against expenses."]`, `"actions": "Review the emergency fund."`, 1),
			wantPath: "$.strategy_12m.q2.actions",
		},
		{
			name:     "null disclaimer",
			raw:      strings.Replace(scenarioOutput, `"disclaimer": "This plan is for educational purposes only and does not constitute financial advice."`, `"disclaimer": null`, 1),
			wantPath: "$.disclaimer",
		},
		{
			name:     "action without refs",
			raw:      strings.Replace(scenarioOutput, `"exact_refs": ["KB-001"]`, `"refs": ["KB-001"]`, 1),
			wantPath: "$.priority_actions_30d[1].exact_refs",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAdvisoryOutput([]byte(tc.raw))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("ParseAdvisoryOutput() error = %v, want a *ParseError", err)
			}
			if perr.Path != tc.wantPath {
				t.Errorf("ParseError.Path = %q, want %q", perr.Path, tc.wantPath)
			}
		})
	}
}
