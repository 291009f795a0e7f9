package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"
	// Exchange zones resolve even where the host has no zoneinfo.
	_ "time/tzdata"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&runCmd{}, "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&checkConfigCmd{}, "config")
	commander.Register(&initConfigCmd{}, "config")

	flag.Parse()

	// SIGINT and SIGTERM stop the run before the next symbol; the exit code stays 0.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
