package recorder

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"PriceArchiver/internal/model"
)

// CSVRecorder appends bars to a CSV dataset. The existing file is read once,
// on the first Append; the outcome of that read, good or bad, holds until the
// recorder is discarded. Existing bytes are never rewritten.
type CSVRecorder struct {
	path string

	mu      sync.Mutex
	loaded  bool
	loadErr error
	ix      *index
}

// NewCSVRecorder creates a recorder for the dataset at path.
func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

func (r *CSVRecorder) load() error {
	if !r.loaded {
		r.ix, r.loadErr = readIndex(r.path)
		r.loaded = true
	}
	return r.loadErr
}

// Rows returns the number of data rows known after the last Append.
func (r *CSVRecorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ix == nil {
		return 0
	}
	return r.ix.rows
}

func (r *CSVRecorder) Append(bars []model.PriceBar) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return 0, err
	}
	fresh := r.ix.fresh(bars)
	if len(fresh) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	if r.ix.needNewline {
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(&buf)
	if r.ix.needHeader {
		_ = w.Write(Header)
	}
	for _, b := range fresh {
		_ = w.Write(record(b))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, &DatasetError{Path: r.path, Err: fmt.Errorf("encode: %w", err)}
	}

	if err := r.write(buf.Bytes()); err != nil {
		return 0, &DatasetError{Path: r.path, Err: err}
	}
	r.ix.add(fresh)
	return len(fresh), nil
}

func (r *CSVRecorder) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	return f.Close()
}

func (r *CSVRecorder) Close() error { return nil }
