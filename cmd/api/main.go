package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	_ "time/tzdata"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "server")
	commander.Register(&importCmd{}, "ledger")
	commander.Register(&statsCmd{}, "reports")
	commander.Register(&monthlyCmd{}, "reports")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
