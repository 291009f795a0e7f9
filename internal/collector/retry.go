package collector

import (
	"context"
	"time"

	"PriceArchiver/internal/model"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// maxRetryDelay caps the doubling backoff.
const maxRetryDelay = 5 * time.Minute

// RetryHook is told about every failed attempt that will be retried.
type RetryHook func(symbol string, attempt int, err error, delay time.Duration)

// Retrying wraps a Fetcher with bounded attempts and exponential backoff.
type Retrying struct {
	fetcher     Fetcher
	maxAttempts int
	backoff     time.Duration
	sleep       Sleeper
	onRetry     RetryHook
}

// RetryOption configures Retrying.
type RetryOption func(*Retrying)

// WithSleep replaces the delay function; tests pass one that returns at once.
func WithSleep(s Sleeper) RetryOption {
	return func(r *Retrying) {
		r.sleep = s
	}
}

// WithOnRetry installs a hook called before each backoff delay.
func WithOnRetry(h RetryHook) RetryOption {
	return func(r *Retrying) {
		r.onRetry = h
	}
}

// NewRetrying creates a retrying fetcher. maxAttempts counts the first try.
func NewRetrying(f Fetcher, maxAttempts int, backoff time.Duration, opts ...RetryOption) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff = min(backoff, maxRetryDelay)
	r := &Retrying{
		fetcher:     f,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       SleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Name() string { return r.fetcher.Name() }

func (r *Retrying) FetchBars(ctx context.Context, symbol, period, interval string) ([]model.PriceBar, error) {
	bars, _, err := r.Fetch(ctx, symbol, period, interval)
	return bars, err
}

// Fetch returns the bars together with the number of attempts it took.
// Failures are always *FetchError.
func (r *Retrying) Fetch(ctx context.Context, symbol, period, interval string) ([]model.PriceBar, int, error) {
	delay := r.backoff
	for attempt := 1; ; attempt++ {
		bars, err := r.fetcher.FetchBars(ctx, symbol, period, interval)
		if err == nil {
			return bars, attempt, nil
		}

		if ctx.Err() != nil {
			return nil, attempt, &FetchError{Symbol: symbol, Attempts: attempt, Err: ctx.Err()}
		}
		if !IsTransient(err) || attempt >= r.maxAttempts {
			return nil, attempt, &FetchError{Symbol: symbol, Attempts: attempt, Err: err}
		}

		if r.onRetry != nil {
			r.onRetry(symbol, attempt, err, delay)
		}
		if serr := r.sleep(ctx, delay); serr != nil {
			return nil, attempt, &FetchError{Symbol: symbol, Attempts: attempt, Err: serr}
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
