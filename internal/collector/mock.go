package collector

import (
	"context"
	"sync"
	"time"

	"PriceArchiver/internal/model"
)

// MockFetcher returns fixed data for testing.
type MockFetcher struct {
	// Bars per symbol. A symbol without an entry gets an empty result.
	Bars map[string][]model.PriceBar
	// Errors are returned in order, one per call, before Bars is consulted.
	Errors map[string][]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol, _, _ string) ([]model.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	n := m.calls[symbol]
	m.calls[symbol] = n + 1
	m.mu.Unlock()

	if errs := m.Errors[symbol]; n < len(errs) && errs[n] != nil {
		return nil, errs[n]
	}
	return m.Bars[symbol], nil
}

// Calls reports how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// MockBars generates count daily bars for symbol ending the day before end,
// drifting around basePrice.
func MockBars(symbol string, basePrice float64, count int, end time.Time) []model.PriceBar {
	bars := make([]model.PriceBar, count)
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Symbol: symbol,
			Time:   day.AddDate(0, 0, -(count - i)),
			Open:   price(p * 0.999),
			High:   price(p * 1.005),
			Low:    price(p * 0.995),
			Close:  price(p),
			Volume: 1000000,
		}
	}
	return bars
}
