package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	// IntradayLayout keeps the exchange-local wall clock and its offset, so
	// two bars in a DST fall-back hour never render the same.
	IntradayLayout = "2006-01-02 15:04:05-07:00"
)

// Periods accepted by the chart API's range parameter.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// Intervals accepted by the chart API's interval parameter.
var Intervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "4h", "1d", "5d", "1wk", "1mo", "3mo"}

// IsIntraday reports whether bars at this interval carry a time of day.
func IsIntraday(interval string) bool {
	switch interval {
	case "1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "4h":
		return true
	}
	return false
}

// PriceBar is a single OHLCV row for one symbol.
type PriceBar struct {
	Symbol   string
	Time     time.Time
	Intraday bool
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   int64
}

// Timestamp renders the bar time the way it is stored in the dataset.
func (b PriceBar) Timestamp() string {
	if b.Intraday {
		return b.Time.Format(IntradayLayout)
	}
	return b.Time.Format(DateLayout)
}

// Key identifies a row in the dataset.
func (b PriceBar) Key() BarKey {
	return NewBarKey(b.Symbol, b.Timestamp())
}

// BarKey is the (symbol, timestamp) uniqueness key of the dataset.
// Intraday timestamps are keyed by their UTC instant, so the same bar
// rendered with a different offset still matches.
type BarKey struct {
	Symbol    string
	Timestamp string
}

// NewBarKey builds the key for a stored (symbol, timestamp) pair. Dates and
// legacy rows without an offset are kept verbatim.
func NewBarKey(symbol, ts string) BarKey {
	if t, err := time.Parse(IntradayLayout, ts); err == nil {
		ts = t.UTC().Format(time.RFC3339)
	}
	return BarKey{Symbol: symbol, Timestamp: ts}
}
