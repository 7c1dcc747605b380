package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

type kbCmd struct{}

func (*kbCmd) Name() string     { return "kb" }
func (*kbCmd) Synopsis() string { return "list or show knowledge base documents" }
func (*kbCmd) Usage() string {
	return `advisor kb [<id>...]

  Without arguments, lists the documents an advisory may cite. Otherwise shows the documents.
`
}

func (c *kbCmd) SetFlags(f *flag.FlagSet) {}

func (c *kbCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	lib, err := openKnowledge(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if f.NArg() == 0 {
		var b strings.Builder
		b.WriteString("| ID | Title |\n|---|---|\n")
		for _, ref := range lib.Refs() {
			fmt.Fprintf(&b, "| %s | %s |\n", ref.ID, ref.Title)
		}
		printMarkdown(b.String())
		return subcommands.ExitSuccess
	}

	doc, err := lib.Concat(f.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading doc: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(doc)
	return subcommands.ExitSuccess
}
