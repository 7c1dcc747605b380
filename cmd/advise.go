package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/advisory"
	"github.com/etnz/advisory/renderer"
	"github.com/google/subcommands"
)

// adviseCmd holds the flags for the 'advise' subcommand.
type adviseCmd struct {
	json bool
}

func (*adviseCmd) Name() string     { return "advise" }
func (*adviseCmd) Synopsis() string { return "write a validated advisory plan for a user" }
func (*adviseCmd) Usage() string {
	return `advisor advise [-json] <user_id>

  Builds the plan inputs of the user, asks the model for an advisory and validates it.
  Rejected answers are retried with the validation errors, up to max_retries times.
`
}

func (c *adviseCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print the advisory as JSON instead of markdown")
}

func (c *adviseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "advise requires exactly one user id")
	}
	a, err := newApp(ctx, true, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	out, in, err := a.service.Advise(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var aerr *advisory.AuditError
		if errors.As(err, &aerr) {
			printMarkdown(renderer.ReportMarkdown(advisory.Report{Results: aerr.Failures}))
		}
		return subcommands.ExitFailure
	}

	if c.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.AdvisoryMarkdown(out, in))
	return subcommands.ExitSuccess
}
