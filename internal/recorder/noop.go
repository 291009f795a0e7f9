package recorder

import (
	"sync"

	"PriceArchiver/internal/model"
)

// NoopRecorder reports what CSVRecorder would add without writing anything.
// It is used for dry runs.
type NoopRecorder struct {
	path string

	mu      sync.Mutex
	loaded  bool
	loadErr error
	ix      *index
}

func NewNoopRecorder(path string) *NoopRecorder { return &NoopRecorder{path: path} }

func (n *NoopRecorder) Append(bars []model.PriceBar) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded {
		n.ix, n.loadErr = readIndex(n.path)
		n.loaded = true
	}
	if n.loadErr != nil {
		return 0, n.loadErr
	}
	fresh := n.ix.fresh(bars)
	n.ix.add(fresh)
	return len(fresh), nil
}

func (n *NoopRecorder) Close() error { return nil }
