package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type sinks struct {
	stdout, stderr, file bytes.Buffer
}

func newTestLogger(console, file Verbosity) (*Logger, *sinks) {
	s := &sinks{}
	l := New(Options{
		ConsoleVerbosity: console,
		FileVerbosity:    file,
		Stdout:           zapcore.AddSync(&s.stdout),
		Stderr:           zapcore.AddSync(&s.stderr),
		File:             zapcore.AddSync(&s.file),
	})
	return l, s
}

func TestParseVerbosity(t *testing.T) {
	for i, name := range VerbosityNames() {
		v, err := ParseVerbosity(name)
		require.NoError(t, err)
		require.Equal(t, Verbosity(i), v)
		require.Equal(t, name, v.String())
	}

	v, err := ParseVerbosity(" Detailed ")
	require.NoError(t, err)
	require.Equal(t, Detailed, v)

	_, err = ParseVerbosity("verbose")
	require.Error(t, err)
}

func TestVerbosityOrdering(t *testing.T) {
	require.True(t, Summary.Enabled(Error.Level()))
	require.True(t, Summary.Enabled(Summary.Level()))
	require.False(t, Summary.Enabled(Detailed.Level()))
	require.False(t, Summary.Enabled(Debug.Level()))
	require.True(t, Debug.Enabled(Debug.Level()))
	require.False(t, Debug.Enabled(All.Level()))
	require.True(t, All.Enabled(All.Level()))
	require.False(t, None.Enabled(Error.Level()))
}

func TestDebugFiltering(t *testing.T) {
	tests := []struct {
		threshold Verbosity
		visible   bool
	}{
		{Summary, false},
		{Detailed, false},
		{Debug, true},
		{All, true},
	}
	for _, tt := range tests {
		t.Run(tt.threshold.String(), func(t *testing.T) {
			l, s := newTestLogger(tt.threshold, tt.threshold)
			l.Debugf("fetching %s", "MSFT")
			require.NoError(t, l.Sync())
			require.Equal(t, tt.visible, strings.Contains(s.stdout.String(), "fetching MSFT"))
			require.Equal(t, tt.visible, strings.Contains(s.file.String(), "fetching MSFT"))
		})
	}
}

func TestConsoleStreams(t *testing.T) {
	l, s := newTestLogger(All, None)
	l.Errorf("symbol %s failed", "XXXX")
	l.Warnf("retrying")
	l.Summaryf("done")

	require.Equal(t, "ERROR: symbol XXXX failed\n", s.stderr.String())
	require.Equal(t, "WARNING: retrying\ndone\n", s.stdout.String())
	require.Empty(t, s.file.String(), "file sink at none must stay empty")
}

func TestConsoleNoneStillShowsErrors(t *testing.T) {
	l, s := newTestLogger(None, Summary)
	l.Errorf("boom")
	l.Summaryf("quiet")

	require.Equal(t, "ERROR: boom\n", s.stderr.String())
	require.Empty(t, s.stdout.String())
	require.Contains(t, s.file.String(), "SUMMARY quiet")
}

func TestFileNoneIsSilent(t *testing.T) {
	l, s := newTestLogger(Summary, None)
	l.Errorf("boom")
	l.Summaryf("progress")

	require.Empty(t, s.file.String())
	require.Equal(t, "ERROR: boom\n", s.stderr.String())
}

func TestFileLineFormat(t *testing.T) {
	l, s := newTestLogger(Error, Detailed)
	l.WithRun("run-1").Detailedf("appended %d rows\nfor MSFT", 3)

	line := s.file.String()
	require.Equal(t, 1, strings.Count(line, "\n"))
	require.Contains(t, line, "DETAILED appended 3 rows for MSFT")
	require.Contains(t, line, `"run": "run-1"`)
	require.Empty(t, s.stdout.String())
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Errorf("ignored")
	require.NoError(t, l.Close())
}

func TestOpenFileSinkLineCapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	w, c, err := OpenFileSink(path, 3, 0)
	require.NoError(t, err)

	l := New(Options{ConsoleVerbosity: Error, FileVerbosity: All, Stdout: zapcore.AddSync(&bytes.Buffer{}), File: w, Closer: c})
	for i := 1; i <= 5; i++ {
		l.Summaryf("line %d", i)
	}
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "line 3")
	require.Contains(t, lines[2], "line 5")
}

func TestLineCappedRecoversFromFailedTrim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	f, err := OpenLineCapped(path, 2)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("a\n"))
	require.NoError(t, err)
	_, err = f.Write([]byte("b\n"))
	require.NoError(t, err)

	// The temp file cannot be created while a directory sits in its place.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))
	_, err = f.Write([]byte("c\n"))
	require.Error(t, err)
	require.NoError(t, os.Remove(path+".tmp"))

	_, err = f.Write([]byte("d\n"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "c\nd\n", string(data))
}

func TestOpenFileSinkRotating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, c, err := OpenFileSink(path, 0, 1)
	require.NoError(t, err)

	l := New(Options{ConsoleVerbosity: Error, FileVerbosity: Summary, Stdout: zapcore.AddSync(&bytes.Buffer{}), File: w, Closer: c})
	l.Summaryf("rotating sink")
	l.Detailedf("filtered")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "SUMMARY rotating sink")
	require.NotContains(t, string(data), "filtered")
}
