package advisory

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
)

//go:embed prompts/*.tmpl
var prompts embed.FS

var promptTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(m Money) string { return m.String() },
	"num":   func(m Money) string { return m.Decimal().String() },
	"join": func(ds []decimal.Decimal, sep string) string {
		s := make([]string, len(ds))
		for i, d := range ds {
			s[i] = d.String()
		}
		return strings.Join(s, sep)
	},
}).ParseFS(prompts, "prompts/*.tmpl"))

// BuildPrompt renders the prompt asking the model for an advisory on in.
//
// The prompt enumerates the only numbers and citation ids the model may use. It is
// deterministic: the same inputs and policy always give the same prompt.
func BuildPrompt(in *PlanInputs, p Policy) (string, error) {
	in = p.Apply(in)
	data := struct {
		*PlanInputs
		Metrics      KeyMetrics
		Authorized   []decimal.Decimal
		BufferMonths string
	}{
		PlanInputs: in,
		Metrics:    in.KeyMetrics(),
		Authorized: in.AuthorizedNumbers(),
	}
	if months, ok := in.CashBufferMonths(); ok {
		data.BufferMonths = months.StringFixed(1)
	}
	var b strings.Builder
	if err := promptTemplates.ExecuteTemplate(&b, "advisory.tmpl", data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return b.String(), nil
}

// CorrectionPrompt appends the reason of a rejection to the base prompt.
func CorrectionPrompt(base string, failure error) (string, error) {
	var b strings.Builder
	err := promptTemplates.ExecuteTemplate(&b, "correction.tmpl", struct {
		Base    string
		Failure error
	}{base, failure})
	if err != nil {
		return "", fmt.Errorf("rendering correction prompt: %w", err)
	}
	return b.String(), nil
}
