package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"PriceArchiver/internal/config"
	"PriceArchiver/internal/logger"
	"PriceArchiver/internal/model"

	"github.com/robfig/cron/v3"
)

// Daemon runs the Runner on a cron schedule until its context ends.
type Daemon struct {
	Cron     *cron.Cron
	Runner   *Runner
	log      *logger.Logger
	onReport func(*model.RunReport)
}

// NewDaemon creates a daemon. onReport, if set, receives every finished report.
func NewDaemon(r *Runner, log *logger.Logger, onReport func(*model.RunReport)) *Daemon {
	if log == nil {
		log = logger.NewNop()
	}
	return &Daemon{
		Cron:     cron.New(cron.WithParser(config.CronParser), cron.WithLogger(cronLogger{log})),
		Runner:   r,
		log:      log,
		onReport: onReport,
	}
}

// Serve registers the run on spec and blocks until ctx is cancelled. With
// runOnStart a run starts immediately; it shares the overlap guard with the
// scheduled runs.
func (d *Daemon) Serve(ctx context.Context, spec string, runOnStart bool) error {
	cl := cronLogger{d.log}
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		report := d.Runner.Run(ctx)
		if d.onReport != nil {
			d.onReport(report)
		}
	}))

	if _, err := d.Cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("register run %q: %w", spec, err)
	}
	d.Cron.Start()
	d.log.Summaryf("Scheduler started with %q", spec)

	var wg sync.WaitGroup
	if runOnStart {
		d.log.Summaryf("Running once on start")
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	d.log.Summaryf("Shutdown signal received, waiting for the current run to stop")
	<-d.Cron.Stop().Done()
	wg.Wait()
	d.log.Summaryf("Scheduler stopped")
	return nil
}

// cronLogger routes cron's own messages into the run log.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		c.log.Warnf("Previous run still in progress, skipping this one")
		return
	}
	c.log.Debugf("cron: %s%s", msg, formatKV(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Errorf("cron: %s%s: %v", msg, formatKV(keysAndValues), err)
}

func formatKV(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
