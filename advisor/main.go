// Command advisor writes validated personal finance advisories.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/advisory/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the command line for shell completion. Install it with
// COMP_INSTALL=1 advisor.
var completion = &complete.Command{
	Flags: map[string]complete.Predictor{
		"config":   predict.Files("*.yaml"),
		"profiles": predict.Dirs("*"),
		"raw":      predict.Nothing,
	},
	Sub: map[string]*complete.Command{
		"advise": {
			Flags: map[string]complete.Predictor{"json": predict.Nothing},
		},
		"validate": {Args: predict.Files("*.json")},
		"prompt": {
			Flags: map[string]complete.Predictor{"correction": predict.Something},
		},
		"kb": {},
		"serve": {
			Flags: map[string]complete.Predictor{"listen": predict.Something},
		},
		"import":   {Args: predict.Files("*.json")},
		"help":     {},
		"flags":    {},
		"commands": {},
	},
}

func main() {
	name := path.Base(os.Args[0])
	completion.Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
