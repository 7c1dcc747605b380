// Package cmd implements the CLI application of the advisory pipeline.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/advisory"
	"github.com/etnz/advisory/agent"
	"github.com/etnz/advisory/kb"
	"github.com/etnz/advisory/profile"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&adviseCmd{}, "advisory")
	c.Register(&validateCmd{}, "advisory")
	c.Register(&promptCmd{}, "advisory")
	c.Register(&kbCmd{}, "advisory")

	c.Register(&serveCmd{}, "server")
	c.Register(&importCmd{}, "server")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile  = flag.String("config", "advisory.yaml", "Path to the YAML configuration file")
	profilesDir = flag.String("profiles", "", "Folder of <user_id>.json profiles, overrides the configured profile store")
	rawMarkdown = flag.Bool("raw", false, "Print markdown as is, without rendering it for the terminal")
)

// stdout receives the commands output.
var stdout io.Writer = os.Stdout

// loadConfig reads the configuration file and applies the command line overrides.
func loadConfig() (advisory.Config, error) {
	cfg, err := advisory.LoadConfig(*configFile)
	if err != nil {
		return cfg, err
	}
	if *profilesDir != "" {
		cfg.ProfilesDir = *profilesDir
		cfg.DatabaseURL = ""
	}
	return cfg, nil
}

// openProfiles returns the Postgres store when a database is configured, the profile folder
// otherwise. release closes it.
func openProfiles(ctx context.Context, cfg advisory.Config) (store advisory.ProfileStore, release func() error, err error) {
	if cfg.DatabaseURL == "" {
		return &profile.FileStore{Dir: cfg.ProfilesDir}, func() error { return nil }, nil
	}
	pg, err := profile.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// openKnowledge returns the configured playbooks, the embedded ones by default.
func openKnowledge(cfg advisory.Config) (*kb.Library, error) {
	if cfg.KnowledgeDir == "" {
		return kb.Default(), nil
	}
	return kb.LoadDir(cfg.KnowledgeDir)
}

// newModel creates the model answering prompts.
var newModel = func(ctx context.Context, cfg advisory.Config, lib *kb.Library, log logrus.FieldLogger) (advisory.Model, error) {
	client, err := agent.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	advisor := agent.NewAdvisor(client, cfg.Model, lib)
	advisor.Logger = log
	return advisor, nil
}

// app is what a command needs to serve advisories.
type app struct {
	cfg     advisory.Config
	log     *logrus.Logger
	lib     *kb.Library
	service *advisory.Service
	close   func() error
}

// newApp loads the configuration and opens the stores. The model is created only if withModel.
func newApp(ctx context.Context, withModel, jsonLogs bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	log := cfg.NewLogger(jsonLogs)
	lib, err := openKnowledge(cfg)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openProfiles(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc := &advisory.Service{Profiles: store, Knowledge: lib, Builder: cfg.Builder()}
	if withModel {
		m, err := newModel(ctx, cfg, lib, log)
		if err != nil {
			closeStore()
			return nil, err
		}
		svc.Pipeline = cfg.Pipeline(m, log)
	}
	return &app{cfg: cfg, log: log, lib: lib, service: svc, close: closeStore}, nil
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}

func usageError(f *flag.FlagSet, msg string) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	f.Usage()
	return subcommands.ExitUsageError
}
