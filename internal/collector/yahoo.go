package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"PriceArchiver/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	chartPath           = "/v8/finance/chart/{symbol}"
	userAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Prices are stored with this many decimal places.
	pricePlaces = 4
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	client *resty.Client
}

// YahooOption configures a YahooFetcher.
type YahooOption func(*YahooFetcher)

// WithBaseURL points the fetcher at another host, e.g. a test server.
func WithBaseURL(u string) YahooOption {
	return func(f *YahooFetcher) {
		f.client.SetBaseURL(u)
	}
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) YahooOption {
	return func(f *YahooFetcher) {
		f.client.SetTimeout(d)
	}
}

// WithProxy routes requests through an HTTP proxy.
func WithProxy(proxyURL string) YahooOption {
	return func(f *YahooFetcher) {
		if proxyURL != "" {
			f.client.SetProxy(proxyURL)
		}
	}
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts ...YahooOption) *YahooFetcher {
	f := &YahooFetcher{
		client: resty.New().
			SetBaseURL(DefaultYahooBaseURL).
			SetTimeout(30 * time.Second).
			SetHeaders(map[string]string{
				"Accept":     "application/json",
				"User-Agent": userAgent,
			}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				Timezone             string `json:"timezone"`
				GMTOffset            int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) FetchBars(ctx context.Context, symbol, period, interval string) ([]model.PriceBar, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"range":          period,
			"interval":       interval,
			"includePrePost": "false",
		}).
		Get(chartPath)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}

	body := resp.Body()
	var chart yahooChart
	decodeErr := json.Unmarshal(body, &chart)

	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, &APIError{
			StatusCode:  resp.StatusCode(),
			Code:        chart.Chart.Error.Code,
			Description: chart.Chart.Error.Description,
		}
	}
	if !resp.IsSuccess() {
		return nil, &APIError{
			StatusCode:  resp.StatusCode(),
			Description: statusDescription(resp.StatusCode(), body),
		}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("yahoo: %w: empty body", ErrMalformedResponse)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yahoo decode: %w: %v", ErrMalformedResponse, decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: %w: no result", ErrMalformedResponse)
	}

	return parseBars(symbol, interval, &chart)
}

func statusDescription(code int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return http.StatusText(code)
	}
	return text
}

func parseBars(symbol, interval string, chart *yahooChart) ([]model.PriceBar, error) {
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return []model.PriceBar{}, nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: %w: no quote series", ErrMalformedResponse)
	}
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("yahoo: %w: quote series length mismatch", ErrMalformedResponse)
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.Timezone, result.Meta.GMTOffset)
	intraday := model.IsIntraday(interval)
	bars := make([]model.PriceBar, 0, n)

	for i, ts := range result.Timestamp {
		o, h, l, c := quote.Open[i], quote.High[i], quote.Low[i], quote.Close[i]
		if o == nil || h == nil || l == nil || c == nil {
			continue // null bars (holidays, halts)
		}
		var volume int64
		if v := quote.Volume[i]; v != nil {
			volume = int64(*v)
		}
		bar := model.PriceBar{
			Symbol:   symbol,
			Time:     time.Unix(ts, 0).In(loc),
			Intraday: intraday,
			Open:     price(*o),
			High:     price(*h),
			Low:      price(*l),
			Close:    price(*c),
			Volume:   volume,
		}
		if k := len(bars); k > 0 && !bar.Time.After(bars[k-1].Time) {
			return nil, fmt.Errorf("yahoo: %w: timestamps not strictly increasing at %s", ErrMalformedResponse, bar.Time.Format(time.RFC3339))
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(pricePlaces)
}

func exchangeLocation(name, abbrev string, offset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone(abbrev, offset)
}
