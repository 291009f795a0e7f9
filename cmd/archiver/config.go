package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"PriceArchiver/internal/config"

	"github.com/google/subcommands"
)

type checkConfigCmd struct {
	configPath string
}

func (*checkConfigCmd) Name() string     { return "check-config" }
func (*checkConfigCmd) Synopsis() string { return "validate the configuration file and report every problem" }
func (*checkConfigCmd) Usage() string {
	return `archiver check-config [-config <path>]

  Loads and validates the configuration without touching the network or the
  dataset. Exits 0 when the file is usable and 2 otherwise.
`
}

func (c *checkConfigCmd) SetFlags(f *flag.FlagSet) { configFlag(f, &c.configPath) }

func (c *checkConfigCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, status := loadConfig(os.Stderr, c.configPath)
	if cfg == nil {
		return status
	}
	fmt.Printf("Config %s is valid\n", c.configPath)
	fmt.Printf("  symbols:  %s\n", strings.Join(cfg.Yahoo.Symbols, ", "))
	fmt.Printf("  period:   %s, interval %s\n", cfg.Yahoo.Period, cfg.Yahoo.Interval)
	fmt.Printf("  dataset:  %s\n", cfg.Files.OutputCSV)
	fmt.Printf("  log file: %s (%s)\n", cfg.Files.LogfileName, cfg.FileVerbosity())
	fmt.Printf("  email:    %t\n", cfg.Email.EnableEmail)
	if cfg.Schedule.Cron != "" {
		fmt.Printf("  schedule: %s\n", cfg.Schedule.Cron)
	}
	return subcommands.ExitSuccess
}

type initConfigCmd struct {
	configPath string
}

func (*initConfigCmd) Name() string     { return "init-config" }
func (*initConfigCmd) Synopsis() string { return "write a template configuration file" }
func (*initConfigCmd) Usage() string {
	return `archiver init-config [-config <path>]

  Writes a template configuration. An existing file is never overwritten.
  The email placeholders must be edited before the config can be used.
`
}

func (c *initConfigCmd) SetFlags(f *flag.FlagSet) { configFlag(f, &c.configPath) }

func (c *initConfigCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := config.WriteDefault(c.configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Wrote %s, edit the <Your ...> placeholders before running\n", c.configPath)
	return subcommands.ExitSuccess
}
