package collector

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"PriceArchiver/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(delays *[]time.Duration) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestRetryingRecovers(t *testing.T) {
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock := &MockFetcher{
		Bars: map[string][]model.PriceBar{"MSFT": MockBars("MSFT", 400, 5, end)},
		Errors: map[string][]error{"MSFT": {
			errors.New("connection reset"),
			&APIError{StatusCode: http.StatusTooManyRequests},
		}},
	}

	var delays []time.Duration
	var retried []int
	r := NewRetrying(mock, 3, time.Second,
		WithSleep(noSleep(&delays)),
		WithOnRetry(func(symbol string, attempt int, err error, delay time.Duration) {
			assert.Equal(t, "MSFT", symbol)
			assert.Error(t, err)
			retried = append(retried, attempt)
		}),
	)

	bars, attempts, err := r.Fetch(context.Background(), "MSFT", "1mo", "1d")
	require.NoError(t, err)
	assert.Len(t, bars, 5)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestRetryingExhausted(t *testing.T) {
	boom := errors.New("timeout")
	mock := &MockFetcher{Errors: map[string][]error{"AAPL": {boom, boom, boom, boom}}}

	var delays []time.Duration
	r := NewRetrying(mock, 3, 10*time.Millisecond, WithSleep(noSleep(&delays)))

	_, attempts, err := r.Fetch(context.Background(), "AAPL", "1mo", "1d")
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, mock.Calls("AAPL"))
	assert.Len(t, delays, 2)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "AAPL", fe.Symbol)
	assert.Equal(t, 3, fe.Attempts)
	assert.ErrorIs(t, err, boom)
}

func TestRetryingDelayCapped(t *testing.T) {
	boom := errors.New("reset")
	mock := &MockFetcher{Errors: map[string][]error{"MSFT": {boom, boom, boom, boom, boom, boom}}}

	var delays []time.Duration
	r := NewRetrying(mock, 6, 2*time.Minute, WithSleep(noSleep(&delays)))

	_, attempts, err := r.Fetch(context.Background(), "MSFT", "1mo", "1d")
	require.Error(t, err)
	assert.Equal(t, 6, attempts)
	assert.Equal(t, []time.Duration{
		2 * time.Minute, 4 * time.Minute, maxRetryDelay, maxRetryDelay, maxRetryDelay,
	}, delays)
}

func TestRetryingNonTransient(t *testing.T) {
	mock := &MockFetcher{Errors: map[string][]error{"ZZZZ": {
		&APIError{StatusCode: http.StatusNotFound, Code: "Not Found"},
	}}}

	var delays []time.Duration
	r := NewRetrying(mock, 5, time.Second, WithSleep(noSleep(&delays)))

	_, attempts, err := r.Fetch(context.Background(), "ZZZZ", "1mo", "1d")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, mock.Calls("ZZZZ"))
	assert.Empty(t, delays)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestRetryingCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &MockFetcher{Errors: map[string][]error{"MSFT": {errors.New("reset"), errors.New("reset")}}}

	r := NewRetrying(mock, 5, time.Second, WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, attempts, err := r.Fetch(ctx, "MSFT", "1mo", "1d")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
