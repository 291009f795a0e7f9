package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"PriceArchiver/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func bar(symbol string, d int, closePrice string) model.PriceBar {
	c := decimal.RequireFromString(closePrice)
	return model.PriceBar{
		Symbol: symbol,
		Time:   day(d),
		Open:   c,
		High:   c,
		Low:    c,
		Close:  c,
		Volume: 100,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestCSVRecorderCreatesWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "prices.csv")
	r := NewCSVRecorder(path)

	n, err := r.Append([]model.PriceBar{bar("MSFT", 3, "370.6"), bar("MSFT", 2, "371.5")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, r.Rows())

	assert.Equal(t, []string{
		"Symbol,Timestamp,Open,High,Low,Close,Volume",
		"MSFT,2024-01-02,371.5,371.5,371.5,371.5,100",
		"MSFT,2024-01-03,370.6,370.6,370.6,370.6,100",
	}, readLines(t, path))
}

func TestCSVRecorderAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, seedDataset(t, path, bar("MSFT", 2, "1"), bar("MSFT", 3, "2"), bar("AAPL", 2, "3")))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Second run: two known bars, two new ones, one duplicated inside the batch.
	r := NewCSVRecorder(path)
	n, err := r.Append([]model.PriceBar{
		bar("MSFT", 3, "2"),
		bar("MSFT", 5, "5"),
		bar("MSFT", 4, "4"),
		bar("MSFT", 4, "4"),
		bar("MSFT", 2, "1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(after), string(before)), "original bytes must be untouched")

	lines := readLines(t, path)
	require.Len(t, lines, 1+3+2)
	assert.Equal(t, "MSFT,2024-01-04,4,4,4,4,100", lines[4])
	assert.Equal(t, "MSFT,2024-01-05,5,5,5,5,100", lines[5])
}

func TestCSVRecorderIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	bars := []model.PriceBar{bar("MSFT", 2, "1"), bar("MSFT", 3, "2")}

	for run := 0; run < 3; run++ {
		r := NewCSVRecorder(path)
		n, err := r.Append(bars)
		require.NoError(t, err)
		if run == 0 {
			assert.Equal(t, 2, n)
		} else {
			assert.Zero(t, n)
		}
		// Same recorder, same bars.
		n, err = r.Append(bars)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Len(t, readLines(t, path), 3)
}

func TestCSVRecorderEmptyFileAndMissingNewline(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := NewCSVRecorder(empty).Append([]model.PriceBar{bar("MSFT", 2, "1")})
	require.NoError(t, err)
	assert.Equal(t, Header, strings.Split(readLines(t, empty)[0], ","))

	noEOL := filepath.Join(dir, "noeol.csv")
	require.NoError(t, os.WriteFile(noEOL, []byte("Symbol,Timestamp,Open,High,Low,Close,Volume\nMSFT,2024-01-02,1,1,1,1,100"), 0o644))
	n, err := NewCSVRecorder(noEOL).Append([]model.PriceBar{bar("MSFT", 2, "1"), bar("MSFT", 3, "2")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{
		"Symbol,Timestamp,Open,High,Low,Close,Volume",
		"MSFT,2024-01-02,1,1,1,1,100",
		"MSFT,2024-01-03,2,2,2,2,100",
	}, readLines(t, noEOL))
}

func TestCSVRecorderCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "wrong header", content: "Date,Close\n2024-01-02,1\n"},
		{name: "short row", content: "Symbol,Timestamp,Open,High,Low,Close,Volume\nMSFT,2024-01-02,1,1\n"},
		{name: "bad quoting", content: "Symbol,Timestamp,Open,High,Low,Close,Volume\nMS\"FT,2024-01-02,1,1,1,1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prices.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			r := NewCSVRecorder(path)
			_, err := r.Append([]model.PriceBar{bar("MSFT", 3, "1")})
			var de *DatasetError
			require.ErrorAs(t, err, &de)
			assert.True(t, de.Corrupt)

			// The cached failure holds for the rest of the run.
			_, err = r.Append([]model.PriceBar{bar("AAPL", 3, "1")})
			require.ErrorAs(t, err, &de)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data), "corrupt file must be left untouched")
		})
	}
}

func TestCSVRecorderIntradayTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	b := bar("MSFT", 2, "1")
	b.Time = b.Time.Add(9*time.Hour + 30*time.Minute)
	b.Intraday = true

	_, err := NewCSVRecorder(path).Append([]model.PriceBar{b})
	require.NoError(t, err)
	assert.Equal(t, "MSFT,2024-01-02 09:30:00+00:00,1,1,1,1,100", readLines(t, path)[1])

	n, err := NewCSVRecorder(path).Append([]model.PriceBar{b})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCSVRecorderFallBackHour(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	first := bar("EURUSD=X", 27, "1.08")
	first.Time = time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC).In(london)
	first.Intraday = true
	second := first
	second.Time = time.Date(2024, 10, 27, 1, 0, 0, 0, time.UTC).In(london)

	path := filepath.Join(t.TempDir(), "prices.csv")
	n, err := NewCSVRecorder(path).Append([]model.PriceBar{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{
		"EURUSD=X,2024-10-27 01:00:00+01:00,1.08,1.08,1.08,1.08,100",
		"EURUSD=X,2024-10-27 01:00:00+00:00,1.08,1.08,1.08,1.08,100",
	}, readLines(t, path)[1:])

	n, err = NewCSVRecorder(path).Append([]model.PriceBar{second, first})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCSVRecorderSameInstantOtherOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	b := bar("MSFT", 1, "1")
	b.Time = time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC).In(time.FixedZone("EDT", -4*3600))
	b.Intraday = true
	require.NoError(t, seedDataset(t, path, b))

	b.Time = b.Time.In(time.FixedZone("EST", -5*3600))
	n, err := NewCSVRecorder(path).Append([]model.PriceBar{b})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, readLines(t, path), 2)
}

func TestNoopRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, seedDataset(t, path, bar("MSFT", 2, "1")))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	r := NewNoopRecorder(path)
	n, err := r.Append([]model.PriceBar{bar("MSFT", 2, "1"), bar("MSFT", 3, "2")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = r.Append([]model.PriceBar{bar("MSFT", 3, "2")})
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	missing := NewNoopRecorder(filepath.Join(t.TempDir(), "none.csv"))
	n, err = missing.Append([]model.PriceBar{bar("MSFT", 2, "1")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// seedDataset seeds a dataset the way a previous run would.
func seedDataset(t *testing.T, path string, bars ...model.PriceBar) error {
	t.Helper()
	_, err := NewCSVRecorder(path).Append(bars)
	return err
}
