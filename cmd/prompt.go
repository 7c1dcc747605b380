package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/advisory"
	"github.com/google/subcommands"
)

// promptCmd holds the flags for the 'prompt' subcommand.
type promptCmd struct {
	correction string
}

func (*promptCmd) Name() string     { return "prompt" }
func (*promptCmd) Synopsis() string { return "print the prompt sent to the model for a user" }
func (*promptCmd) Usage() string {
	return `advisor prompt [-correction <message>] <user_id>

  Prints the prompt built from the user's plan inputs. With -correction, prints the prompt of
  a retry after a rejection with that message.
`
}

func (c *promptCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.correction, "correction", "", "rejection message to build a retry prompt with")
}

func (c *promptCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "prompt requires exactly one user id")
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
	prompt, err := advisory.BuildPrompt(in, a.cfg.Policy())
	if err == nil && c.correction != "" {
		prompt, err = advisory.CorrectionPrompt(prompt, errors.New(c.correction))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building prompt: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, prompt)
	return subcommands.ExitSuccess
}
