package recorder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"PriceArchiver/internal/model"
)

// Header is the fixed column set of the dataset.
var Header = []string{"Symbol", "Timestamp", "Open", "High", "Low", "Close", "Volume"}

// Recorder persists fetched bars.
type Recorder interface {
	// Append stores the bars not already present and returns how many were added.
	Append(bars []model.PriceBar) (int, error)
	Close() error
}

// DatasetError reports an unusable or unwritable dataset file.
type DatasetError struct {
	Path    string
	Corrupt bool
	Err     error
}

func (e *DatasetError) Error() string {
	if e.Corrupt {
		return fmt.Sprintf("dataset %s is corrupt: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("dataset %s: %v", e.Path, e.Err)
}

func (e *DatasetError) Unwrap() error { return e.Err }

// index is the in-memory view of the dataset built from a single read.
type index struct {
	keys        map[model.BarKey]struct{}
	rows        int
	needHeader  bool
	needNewline bool
}

func readIndex(path string) (*index, error) {
	ix := &index{keys: make(map[model.BarKey]struct{})}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		ix.needHeader = true
		return ix, nil
	}
	if err != nil {
		return nil, &DatasetError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		ix.needHeader = true
		ix.needNewline = len(data) > 0 && data[len(data)-1] != '\n'
		return ix, nil
	}
	ix.needNewline = data[len(data)-1] != '\n'

	corrupt := func(format string, args ...any) error {
		return &DatasetError{Path: path, Corrupt: true, Err: fmt.Errorf(format, args...)}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, corrupt("header: %v", err)
	}
	if !slices.Equal(header, Header) {
		return nil, corrupt("header %q does not match %q", header, Header)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, corrupt("%v", err)
		}
		if len(rec) != len(Header) {
			line, _ := r.FieldPos(0)
			return nil, corrupt("line %d has %d fields, want %d", line, len(rec), len(Header))
		}
		ix.keys[model.NewBarKey(rec[0], rec[1])] = struct{}{}
		ix.rows++
	}
	return ix, nil
}

// fresh returns the bars whose key is neither in the dataset nor earlier in
// the batch, stably ordered by time.
func (ix *index) fresh(bars []model.PriceBar) []model.PriceBar {
	seen := make(map[model.BarKey]struct{}, len(bars))
	out := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		k := b.Key()
		if _, ok := ix.keys[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, b)
	}
	slices.SortStableFunc(out, func(a, b model.PriceBar) int {
		return a.Time.Compare(b.Time)
	})
	return out
}

func (ix *index) add(bars []model.PriceBar) {
	for _, b := range bars {
		ix.keys[b.Key()] = struct{}{}
	}
	ix.rows += len(bars)
	ix.needHeader = false
	ix.needNewline = false
}

func record(b model.PriceBar) []string {
	return []string{
		b.Symbol,
		b.Timestamp(),
		b.Open.String(),
		b.High.String(),
		b.Low.String(),
		b.Close.String(),
		fmt.Sprintf("%d", b.Volume),
	}
}
