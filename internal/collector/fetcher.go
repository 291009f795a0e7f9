package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"PriceArchiver/internal/model"
)

// Fetcher retrieves price bars for one symbol from a market-data provider.
// An empty result with a nil error means the provider had no bars.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, period, interval string) ([]model.PriceBar, error)
	Name() string
}

// ErrMalformedResponse marks a response that could not be understood.
// It is treated as transient.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a failure reported by the provider itself.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Description)
}

// IsRetryable returns true for rate limiting and server-side failures.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports an unknown or delisted symbol.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == "Not Found"
}

// IsTransient reports whether err is worth another attempt: network failures,
// rate limiting, server errors and malformed responses are; provider
// rejections such as an unknown symbol are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

// FetchError is returned once a symbol could not be fetched.
type FetchError struct {
	Symbol   string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.Symbol, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
