package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/advisory/profile"
	"github.com/google/subcommands"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import JSON profiles into the database" }
func (*importCmd) Usage() string {
	return `advisor import <profile.json>...

  Creates the profile tables if needed and stores each profile, replacing any previous one.
  The user id defaults to the file name. Requires database_url.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usageError(f, "import requires at least one profile file")
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: database_url is not configured")
		return subcommands.ExitFailure
	}
	store, err := profile.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, path := range f.Args() {
		userID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		p, err := profile.ReadFile(path, userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := store.Save(ctx, p); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving %q: %v\n", p.UserID, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Successfully imported profile %s\n", p.UserID)
	}
	return subcommands.ExitSuccess
}
