package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/advisory/server"
	"github.com/google/subcommands"
)

// serveCmd holds the flags for the 'serve' subcommand.
type serveCmd struct {
	listen string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve advisories over HTTP" }
func (*serveCmd) Usage() string {
	return `advisor serve [-listen <addr>]

  Serves POST /users/{id}/advisory, GET /users/{id}/inputs, GET /kb, GET /healthz and
  GET /metrics. Logs are written as JSON.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.listen, "listen", "", "address to listen on, overrides the configuration")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	addr := a.cfg.Listen
	if c.listen != "" {
		addr = c.listen
	}
	// a request may wait for every attempt.
	attempts := time.Duration(1 + max(a.cfg.MaxRetries, 0))
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.New(a.service, a.log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: attempts*a.cfg.Timeout + 10*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			a.log.WithError(err).Error("shutdown failed")
		}
	}()

	a.log.Infof("Starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.WithError(err).Error("server failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
