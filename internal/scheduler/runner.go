package scheduler

import (
	"context"
	"time"

	"PriceArchiver/internal/collector"
	"PriceArchiver/internal/logger"
	"PriceArchiver/internal/model"
	"PriceArchiver/internal/notifier"
	"PriceArchiver/internal/recorder"

	"github.com/google/uuid"
)

// Settings are the parts of the configuration a run needs.
type Settings struct {
	Symbols      []string
	Period       string
	Interval     string
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Alerter is told about every finished run.
type Alerter interface {
	Notify(ctx context.Context, r *model.RunReport) error
}

// Runner downloads every configured symbol once per Run.
type Runner struct {
	settings    Settings
	fetcher     collector.Fetcher
	newRecorder func() recorder.Recorder
	alerter     Alerter
	log         *logger.Logger

	sleep collector.Sleeper
	now   func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSleep replaces the retry backoff delay.
func WithSleep(s collector.Sleeper) RunnerOption {
	return func(r *Runner) { r.sleep = s }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. newRecorder is called once per run, so every
// run reads the dataset afresh.
func NewRunner(s Settings, f collector.Fetcher, newRecorder func() recorder.Recorder, a Alerter, log *logger.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Runner{
		settings:    s,
		fetcher:     f,
		newRecorder: newRecorder,
		alerter:     a,
		log:         log,
		sleep:       collector.SleepContext,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes the symbols in order and returns the report. A cancelled
// context stops the run before the next symbol and yields StatusInterrupted.
func (r *Runner) Run(ctx context.Context) *model.RunReport {
	report := &model.RunReport{RunID: uuid.NewString(), StartedAt: r.now()}
	log := r.log.WithRun(report.RunID)

	log.Summaryf("Run started: %d symbol(s), period %s, interval %s, source %s",
		len(r.settings.Symbols), r.settings.Period, r.settings.Interval, r.fetcher.Name())

	rec := r.newRecorder()
	defer func() {
		if err := rec.Close(); err != nil {
			log.Warnf("Closing dataset: %v", err)
		}
	}()

	fetcher := collector.NewRetrying(r.fetcher, r.settings.MaxAttempts, r.settings.RetryBackoff,
		collector.WithSleep(r.sleep),
		collector.WithOnRetry(func(symbol string, attempt int, err error, delay time.Duration) {
			log.Warnf("%s: attempt %d of %d failed: %v, retrying in %s", symbol, attempt, r.settings.MaxAttempts, err, delay)
		}),
	)

	interrupted := false
	for _, symbol := range r.settings.Symbols {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		outcome := r.process(ctx, log, fetcher, rec, symbol)
		if ctx.Err() != nil && outcome.Kind == model.OutcomeFailed {
			// Cut short by the signal, not a real failure.
			interrupted = true
			break
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.FinishedAt = r.now()
	if interrupted {
		report.Status = model.StatusInterrupted
		log.Warnf("Run interrupted after %d of %d symbol(s)", len(report.Outcomes), len(r.settings.Symbols))
	} else {
		report.Status = model.Aggregate(report.Outcomes)
	}

	if report.Status == model.StatusAllOk || report.Status == model.StatusInterrupted {
		log.Summaryf("%s", notifier.FormatRunSummary(report))
	} else {
		log.Errorf("%s", notifier.FormatRunSummary(report))
	}

	if r.alerter != nil {
		if err := r.alerter.Notify(ctx, report); err != nil {
			log.Errorf("Notification failed: %v", err)
		}
	}
	return report
}

func (r *Runner) process(ctx context.Context, log *logger.Logger, f *collector.Retrying, rec recorder.Recorder, symbol string) model.SymbolOutcome {
	outcome := model.SymbolOutcome{Symbol: symbol}

	log.Debugf("%s: fetching", symbol)
	bars, attempts, err := f.Fetch(ctx, symbol, r.settings.Period, r.settings.Interval)
	outcome.Attempts = attempts
	if err != nil {
		outcome.Kind = model.OutcomeFailed
		outcome.Err = err
		if ctx.Err() == nil {
			log.Errorf("%s: %v", symbol, err)
		}
		return outcome
	}
	if attempts > 1 {
		log.Detailedf("%s: fetched after %d attempts", symbol, attempts)
	}
	if len(bars) == 0 {
		outcome.Kind = model.OutcomeNoNewData
		log.Detailedf("%s: provider returned no bars", symbol)
		return outcome
	}
	log.Debugf("%s: received %d bar(s) from %s to %s", symbol, len(bars), bars[0].Timestamp(), bars[len(bars)-1].Timestamp())
	for _, b := range bars {
		log.Allf("%s %s O=%s H=%s L=%s C=%s V=%d", b.Symbol, b.Timestamp(), b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	added, err := rec.Append(bars)
	if err != nil {
		outcome.Kind = model.OutcomeFailed
		outcome.Err = err
		log.Errorf("%s: %v", symbol, err)
		return outcome
	}
	if added == 0 {
		outcome.Kind = model.OutcomeNoNewData
		log.Detailedf("%s: no new data, all %d bar(s) already stored", symbol, len(bars))
		return outcome
	}
	outcome.Kind = model.OutcomeSuccess
	outcome.RowsAdded = added
	log.Detailedf("%s: added %d new row(s)", symbol, added)
	return outcome
}
