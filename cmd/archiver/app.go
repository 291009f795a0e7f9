package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"PriceArchiver/internal/collector"
	"PriceArchiver/internal/config"
	"PriceArchiver/internal/logger"
	"PriceArchiver/internal/model"
	"PriceArchiver/internal/notifier"
	"PriceArchiver/internal/recorder"
	"PriceArchiver/internal/scheduler"

	"github.com/google/subcommands"
)

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

func configFlag(f *flag.FlagSet, p *string) {
	f.StringVar(p, "config", defaultConfigPath(), "Path to the YAML configuration file. Defaults to $CONFIG_PATH, then config.yaml.")
}

// loadConfig loads the configuration, printing every problem to w on failure.
func loadConfig(w io.Writer, path string) (*config.Config, subcommands.ExitStatus) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, subcommands.ExitSuccess
	}
	printConfigError(w, err)
	return nil, model.ExitConfigError
}

func printConfigError(w io.Writer, err error) {
	var ce *config.ConfigError
	if !errors.As(err, &ce) {
		fmt.Fprintf(w, "ERROR: %v\n", err)
		return
	}
	problems := ce.Problems()
	if len(problems) <= 1 {
		fmt.Fprintf(w, "ERROR: %v\n", err)
		return
	}
	fmt.Fprintf(w, "ERROR: config %s has %d problems:\n", ce.Path, len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "  - %v\n", p)
	}
}

// openLogger builds the process logger. A log file that cannot be opened is fatal.
func openLogger(cfg *config.Config) (*logger.Logger, error) {
	opts := logger.Options{
		ConsoleVerbosity: cfg.ConsoleVerbosity(),
		FileVerbosity:    cfg.FileVerbosity(),
	}
	if cfg.Files.LogfileName != "" {
		ws, closer, err := logger.OpenFileSink(cfg.Files.LogfileName, cfg.Files.LogfileMaxLines, cfg.Files.LogfileMaxSizeMB)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		opts.File = ws
		opts.Closer = closer
	}
	return logger.New(opts), nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	return collector.NewYahooFetcher(
		collector.WithTimeout(cfg.Yahoo.Timeout),
		collector.WithProxy(cfg.Yahoo.Proxy),
	)
}

func newMailer(cfg *config.Config, log *logger.Logger) notifier.Mailer {
	if !cfg.Email.EnableEmail {
		return notifier.NoopMailer{Log: log}
	}
	return notifier.NewSMTPMailer(notifier.SMTPSettings{
		Host:          cfg.Email.SMTPServer,
		Port:          cfg.Email.SMTPPort,
		Username:      cfg.Email.SMTPUsername,
		Password:      cfg.Email.SMTPPassword,
		To:            cfg.Email.SendEmailsTo,
		SubjectPrefix: cfg.Email.SubjectPrefix,
		Timeout:       cfg.Email.SMTPTimeout,
	})
}

func newRunner(cfg *config.Config, f collector.Fetcher, log *logger.Logger, dryRun bool) *scheduler.Runner {
	newRecorder := func() recorder.Recorder { return recorder.NewCSVRecorder(cfg.Files.OutputCSV) }
	if dryRun {
		newRecorder = func() recorder.Recorder { return recorder.NewNoopRecorder(cfg.Files.OutputCSV) }
	}
	alerter := notifier.NewAlerter(newMailer(cfg, log), cfg.Files.AlertStateFile, log)
	return scheduler.NewRunner(scheduler.Settings{
		Symbols:      cfg.Yahoo.Symbols,
		Period:       cfg.Yahoo.Period,
		Interval:     cfg.Yahoo.Interval,
		MaxAttempts:  cfg.Yahoo.MaxAttempts,
		RetryBackoff: cfg.Yahoo.RetryBackoff,
	}, f, newRecorder, alerter, log)
}
