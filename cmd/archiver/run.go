package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"PriceArchiver/internal/model"

	"github.com/google/subcommands"
)

type runCmd struct {
	configPath string
	dryRun     bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "download prices for every configured symbol once and append them to the CSV" }
func (*runCmd) Usage() string {
	return `archiver run [-config <path>] [-dry-run]

  Fetches the configured period and interval for each symbol in order and
  appends the bars not yet in the dataset. The exit code is 0 when every
  symbol succeeded (or the run was interrupted), 2 on a configuration error,
  3 when some symbols failed and 4 when all of them failed.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &c.configPath)
	f.BoolVar(&c.dryRun, "dry-run", false, "Fetch and count new rows without writing the dataset.")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, status := loadConfig(os.Stderr, c.configPath)
	if cfg == nil {
		return status
	}

	log, err := openLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return model.ExitFatal
	}
	defer log.Close()

	if c.dryRun {
		log.Summaryf("Dry run, %s will not be modified", cfg.Files.OutputCSV)
	}
	report := newRunner(cfg, newFetcher(cfg), log, c.dryRun).Run(ctx)
	return subcommands.ExitStatus(report.ExitCode())
}
