package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// OpenFileSink opens the log file sink. With maxLines == 0 and maxSizeMB > 0
// the file rotates by size; otherwise it is capped at maxLines lines (0 = unbounded).
func OpenFileSink(path string, maxLines, maxSizeMB int) (zapcore.WriteSyncer, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	if maxLines == 0 && maxSizeMB > 0 {
		w := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB, // MB
			MaxBackups: 3,
			Compress:   true,
		}
		return zapcore.AddSync(w), w, nil
	}
	f, err := OpenLineCapped(path, maxLines)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// LineCappedFile is an append-only text file that keeps only its newest maxLines lines.
type LineCappedFile struct {
	mu       sync.Mutex
	path     string
	maxLines int
	f        *os.File
	lines    int
}

// OpenLineCapped opens (or creates) path for appending and trims it if it is
// already over the cap.
func OpenLineCapped(path string, maxLines int) (*LineCappedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := &LineCappedFile{
		path:     path,
		maxLines: maxLines,
		f:        f,
		lines:    bytes.Count(data, []byte{'\n'}),
	}
	if l.over() {
		if err := l.trim(); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

func (l *LineCappedFile) over() bool {
	return l.maxLines > 0 && l.lines > l.maxLines
}

func (l *LineCappedFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		if err := l.reopen(); err != nil {
			return 0, err
		}
	}
	n, err := l.f.Write(p)
	l.lines += bytes.Count(p[:n], []byte{'\n'})
	if err != nil {
		return n, err
	}
	if l.over() {
		if err := l.trim(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// trim rewrites the file with its newest maxLines lines. Caller holds mu.
// The handle is reopened even when the rewrite fails, so a later write
// appends and tries again.
func (l *LineCappedFile) trim() error {
	err := l.f.Close()
	l.f = nil
	if err != nil {
		err = fmt.Errorf("close log file: %w", err)
	}

	kept, rerr := l.rewrite()
	err = multierr.Append(err, rerr)
	if rerr == nil {
		l.lines = kept
	}
	return multierr.Append(err, l.reopen())
}

// rewrite replaces the file with its tail and returns the lines kept.
func (l *LineCappedFile) rewrite() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}

	lines := bytes.SplitAfter(data, []byte{'\n'})
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}
	if len(lines) > l.maxLines {
		lines = lines[len(lines)-l.maxLines:]
	}
	kept := bytes.Join(lines, nil)

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, kept, 0o644); err != nil {
		return 0, fmt.Errorf("write trimmed log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replace log file: %w", err)
	}
	return bytes.Count(kept, []byte{'\n'}), nil
}

func (l *LineCappedFile) reopen() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reopen log file: %w", err)
	}
	l.f = f
	return nil
}

func (l *LineCappedFile) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.f.Sync()
}

func (l *LineCappedFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
