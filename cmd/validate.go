package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/advisory"
	"github.com/etnz/advisory/renderer"
	"github.com/google/subcommands"
)

type validateCmd struct{}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "audit an advisory JSON file against a user's inputs" }
func (*validateCmd) Usage() string {
	return `advisor validate <user_id> <advisory.json>

  Runs the numeric, citation, business rule and compliance audits on an advisory produced
  elsewhere. Exits with a failure status when any audit fails.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {}

func (c *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, "validate requires a user id and an advisory file")
	}
	raw, err := os.ReadFile(f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading advisory: %v\n", err)
		return subcommands.ExitFailure
	}

	a, err := newApp(ctx, false, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	in, err := a.service.Inputs(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	out, err := advisory.ParseAdvisoryOutput(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	report := advisory.NewValidator(a.cfg.Policy()).Validate(in, out)
	printMarkdown(renderer.ReportMarkdown(report))
	if !report.Valid() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
