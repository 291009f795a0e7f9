package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"PriceArchiver/internal/config"
	"PriceArchiver/internal/model"
	"PriceArchiver/internal/scheduler"

	"github.com/google/subcommands"
)

type serveCmd struct {
	configPath string
	cronSpec   string
	runOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the download on a cron schedule until interrupted" }
func (*serveCmd) Usage() string {
	return `archiver serve [-config <path>] [-cron <spec>] [-run-on-start]

  Keeps running and starts a download on every tick of the schedule. A run
  that is still going when the next tick fires causes that tick to be
  skipped. SIGINT or SIGTERM stops the daemon with exit code 0.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &c.configPath)
	f.StringVar(&c.cronSpec, "cron", "", "Cron schedule, overriding Schedule.Cron from the config.")
	f.BoolVar(&c.runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "Start a run immediately as well as on schedule.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, status := loadConfig(os.Stderr, c.configPath)
	if cfg == nil {
		return status
	}

	spec := c.cronSpec
	if spec == "" {
		spec = cfg.Schedule.Cron
	}
	if spec == "" {
		fmt.Fprintln(os.Stderr, "ERROR: no schedule: set Schedule.Cron in the config or pass -cron")
		return model.ExitConfigError
	}
	if _, err := config.CronParser.Parse(spec); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: -cron %q: %v\n", spec, err)
		return model.ExitConfigError
	}

	log, err := openLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return model.ExitFatal
	}
	defer log.Close()

	runner := newRunner(cfg, newFetcher(cfg), log, false)
	if err := scheduler.NewDaemon(runner, log, nil).Serve(ctx, spec, c.runOnStart); err != nil {
		log.Errorf("%v", err)
		return model.ExitFatal
	}
	return subcommands.ExitSuccess
}
