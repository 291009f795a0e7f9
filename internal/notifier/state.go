package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
)

// AlertState remembers an outstanding critical alert between runs, so that
// one alert goes out per outage and a recovery message closes it.
type AlertState struct {
	Active    bool      `json:"active"`
	Message   string    `json:"message,omitempty"`
	Since     time.Time `json:"since"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadState reads the alert state. A missing file means no alert is outstanding.
func LoadState(path string) (*AlertState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &AlertState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read alert state: %w", err)
	}

	state := &AlertState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse alert state %s: %w", path, err)
	}
	return state, nil
}

// SaveState stamps the state with now and replaces the file at path in one
// rename, so readers see either the old state or the new one.
func SaveState(path string, state *AlertState, now time.Time) (err error) {
	state.UpdatedAt = now
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alert state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create alert state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create alert state: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	_, err = tmp.Write(append(data, '\n'))
	err = multierr.Combine(err, tmp.Sync(), tmp.Close(), os.Chmod(tmp.Name(), 0o644))
	if err != nil {
		return fmt.Errorf("write alert state: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace alert state: %w", err)
	}
	return nil
}
