package advisory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// AdvisoryOutput is the structured advisory produced by the model for one request.
type AdvisoryOutput struct {
	ExecutiveSummary  ExecutiveSummary  `json:"executive_summary"`
	PriorityActions   []PriorityAction  `json:"priority_actions_30d"`
	Strategy          Strategy          `json:"strategy_12m"`
	RiskManagement    RiskManagement    `json:"risk_management"`
	TaxConsiderations TaxConsiderations `json:"tax_considerations"`
	Disclaimer        string            `json:"disclaimer"`
}

type ExecutiveSummary struct {
	Overview    string      `json:"overview"`
	KeyMetrics  KeyMetrics  `json:"key_metrics"`
	StatusFlags StatusFlags `json:"status_flags"`
}

type StatusFlags struct {
	OnTrack        bool `json:"on_track"`
	StabilizeFirst bool `json:"stabilize_first"`
}

// PriorityAction is something to do within the next 30 days.
type PriorityAction struct {
	Title     string   `json:"title"`
	Detail    string   `json:"detail"`
	ExactRefs []string `json:"exact_refs"`
}

// Strategy is the 12 months plan, one entry per quarter.
type Strategy struct {
	Q1 Quarter `json:"q1"`
	Q2 Quarter `json:"q2"`
	Q3 Quarter `json:"q3"`
	Q4 Quarter `json:"q4"`
}

// Quarters returns the four quarters in order.
func (s Strategy) Quarters() [4]Quarter { return [4]Quarter{s.Q1, s.Q2, s.Q3, s.Q4} }

type Quarter struct {
	Focus   string   `json:"focus"`
	Actions []string `json:"actions"`
}

type RiskManagement struct {
	Risks       []string `json:"risks"`
	Mitigations []string `json:"mitigations"`
	Citations   []string `json:"citations"`
}

type TaxConsiderations struct {
	Ideas     []string `json:"ideas"`
	Citations []string `json:"citations"`
}

// Citations returns every citation ID used in the output, in order of appearance.
func (o *AdvisoryOutput) Citations() []string {
	var ids []string
	for _, a := range o.PriorityActions {
		ids = append(ids, a.ExactRefs...)
	}
	ids = append(ids, o.RiskManagement.Citations...)
	ids = append(ids, o.TaxConsiderations.Citations...)
	return ids
}

// kind of JSON value expected at a path.
type kind int

const (
	kString kind = iota
	kNumber
	kBool
	kArray
	kObject
)

func (k kind) String() string {
	return [...]string{"string", "number", "boolean", "array", "object"}[k]
}

func (k kind) match(v any) bool {
	switch v.(type) {
	case string:
		return k == kString
	case json.Number:
		return k == kNumber
	case bool:
		return k == kBool
	case []any:
		return k == kArray
	case map[string]any:
		return k == kObject
	}
	return false
}

// required lists the fields every advisory output must carry.
var required = []struct {
	path string
	kind kind
}{
	{"$.executive_summary", kObject},
	{"$.executive_summary.overview", kString},
	{"$.executive_summary.key_metrics", kObject},
	{"$.executive_summary.key_metrics.net_worth", kNumber},
	{"$.executive_summary.key_metrics.monthly_surplus", kNumber},
	{"$.executive_summary.key_metrics.required_contrib_total_monthly", kNumber},
	{"$.executive_summary.key_metrics.surplus_gap_monthly", kNumber},
	{"$.executive_summary.status_flags.on_track", kBool},
	{"$.executive_summary.status_flags.stabilize_first", kBool},
	{"$.priority_actions_30d", kArray},
	{"$.strategy_12m.q1", kObject},
	{"$.strategy_12m.q1.focus", kString},
	{"$.strategy_12m.q1.actions", kArray},
	{"$.strategy_12m.q2", kObject},
	{"$.strategy_12m.q2.focus", kString},
	{"$.strategy_12m.q2.actions", kArray},
	{"$.strategy_12m.q3", kObject},
	{"$.strategy_12m.q3.focus", kString},
	{"$.strategy_12m.q3.actions", kArray},
	{"$.strategy_12m.q4", kObject},
	{"$.strategy_12m.q4.focus", kString},
	{"$.strategy_12m.q4.actions", kArray},
	{"$.risk_management.risks", kArray},
	{"$.risk_management.mitigations", kArray},
	{"$.risk_management.citations", kArray},
	{"$.tax_considerations.ideas", kArray},
	{"$.tax_considerations.citations", kArray},
	{"$.disclaimer", kString},
}

// requiredPerAction lists the fields of each priority action.
var requiredPerAction = []struct {
	field string
	kind  kind
}{
	{"title", kString},
	{"detail", kString},
	{"exact_refs", kArray},
}

// ParseAdvisoryOutput decodes a model response into an AdvisoryOutput.
//
// The response may be wrapped in a markdown code fence or surrounded by prose, only the first
// JSON object is read and whatever follows it is ignored. Every required field is checked before
// decoding, so that a payload with a missing field is rejected instead of decoded to zero values.
func ParseAdvisoryOutput(raw []byte) (*AdvisoryOutput, error) {
	start := bytes.IndexByte(raw, '{')
	if start < 0 {
		return nil, &ParseError{Err: errors.New("no JSON object in response")}
	}
	dec := json.NewDecoder(bytes.NewReader(raw[start:]))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	body := raw[start : start+int(dec.InputOffset())]

	for _, r := range required {
		if err := check(doc, r.path, r.kind); err != nil {
			return nil, err
		}
	}
	actions, _ := jsonpath.Get("$.priority_actions_30d", doc)
	for i := range actions.([]any) {
		for _, f := range requiredPerAction {
			if err := check(doc, fmt.Sprintf("$.priority_actions_30d[%d].%s", i, f.field), f.kind); err != nil {
				return nil, err
			}
		}
	}

	var out AdvisoryOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &out, nil
}

// check asserts that path exists in doc and holds a value of kind k.
func check(doc any, path string, k kind) error {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return &ParseError{Path: path, Err: errors.New("missing required field")}
	}
	if !k.match(v) {
		return &ParseError{Path: path, Err: fmt.Errorf("got %T, want %v", v, k)}
	}
	return nil
}
