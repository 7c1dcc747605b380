// Package renderer renders advisories and validation reports as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/advisory"
)

//go:embed templates/*.md
var templates embed.FS

// advisoryView is the data of the advisory template.
type advisoryView struct {
	*advisory.AdvisoryOutput
	In      *advisory.PlanInputs
	Metrics advisory.KeyMetrics
	Titles  map[string]string
}

// AdvisoryMarkdown renders a validated advisory. Key metrics are taken from the inputs the
// advisory was validated against, so that they carry the client's currency.
func AdvisoryMarkdown(out *advisory.AdvisoryOutput, in *advisory.PlanInputs) string {
	titles := make(map[string]string)
	for _, ref := range in.KBContext {
		titles[ref.ID] = ref.Title
	}
	partials := map[string]string{
		"advisory_summary":  "advisory_summary.md",
		"advisory_actions":  "advisory_actions.md",
		"advisory_strategy": "advisory_strategy.md",
		"advisory_risks":    "advisory_risks.md",
	}
	return renderTemplate("advisory", "advisory.md", partials, advisoryView{
		AdvisoryOutput: out,
		In:             in,
		Metrics:        in.KeyMetrics(),
		Titles:         titles,
	})
}

// ReportMarkdown renders the result of the four audits.
func ReportMarkdown(r advisory.Report) string {
	return renderTemplate("report", "report.md", nil, r)
}

var funcs = template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"join":  strings.Join,
	"check": check,
	"cite": func(titles map[string]string, id string) string {
		if t, ok := titles[id]; ok {
			return fmt.Sprintf("%s (%s)", id, t)
		}
		return id
	},
}

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, "templates/"+file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
