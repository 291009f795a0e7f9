package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity is both a message severity and a sink threshold.
// The order matters: a sink at threshold T shows every message with severity <= T.
type Verbosity int

const (
	None Verbosity = iota
	Error
	Warning
	Summary
	Detailed
	Debug
	All
)

var verbosityNames = [...]string{"none", "error", "warning", "summary", "detailed", "debug", "all"}

// VerbosityNames lists the accepted configuration values in ascending order.
func VerbosityNames() []string {
	return verbosityNames[:]
}

func (v Verbosity) String() string {
	if v < None || v > All {
		return fmt.Sprintf("verbosity(%d)", int(v))
	}
	return verbosityNames[v]
}

// ParseVerbosity converts a configuration value into a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	for i, name := range verbosityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Verbosity(i), nil
		}
	}
	return None, fmt.Errorf("unknown verbosity %q (allowed: %s)", s, strings.Join(verbosityNames[:], ", "))
}

// zap has no levels below Debug, so debug and all get their own.
const (
	debugLevel = zapcore.DebugLevel - 1
	allLevel   = zapcore.DebugLevel - 2
)

// Level maps a message severity onto a zap level.
func (v Verbosity) Level() zapcore.Level {
	switch v {
	case Error:
		return zapcore.ErrorLevel
	case Warning:
		return zapcore.WarnLevel
	case Summary:
		return zapcore.InfoLevel
	case Detailed:
		return zapcore.DebugLevel
	case Debug:
		return debugLevel
	case All:
		return allLevel
	default:
		return zapcore.InvalidLevel
	}
}

// Enabled reports whether a sink at threshold v emits messages at level lvl.
func (v Verbosity) Enabled(lvl zapcore.Level) bool {
	if v <= None || v > All {
		return false
	}
	return lvl >= v.Level()
}

func levelName(l zapcore.Level) string {
	switch l {
	case zapcore.ErrorLevel:
		return "ERROR"
	case zapcore.WarnLevel:
		return "WARNING"
	case zapcore.InfoLevel:
		return "SUMMARY"
	case zapcore.DebugLevel:
		return "DETAILED"
	case debugLevel:
		return "DEBUG"
	case allLevel:
		return "ALL"
	}
	return l.CapitalString()
}

func fileLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(levelName(l))
}

// Console output only tags errors and warnings.
func consoleLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.ErrorLevel, zapcore.WarnLevel:
		enc.AppendString(levelName(l) + ":")
	}
}

func fileEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeLevel:      fileLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
}

func consoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      consoleLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
}

// Options configures New.
type Options struct {
	// ConsoleVerbosity below Error is raised to Error; errors always reach stderr.
	ConsoleVerbosity Verbosity
	// FileVerbosity is applied as given. None turns the file sink off
	// entirely, errors included; those still go to stderr.
	FileVerbosity Verbosity

	// Stdout and Stderr default to the process streams.
	Stdout zapcore.WriteSyncer
	Stderr zapcore.WriteSyncer

	// File is the log file sink; nil disables file logging.
	File   zapcore.WriteSyncer
	Closer io.Closer
}

// Logger writes each message to the console and the log file, filtered per sink.
type Logger struct {
	console zapcore.Core
	file    zapcore.Core
	z       *zap.Logger
	closer  io.Closer
}

// New builds a Logger. Errors always reach stderr, even when the console
// threshold is "none".
func New(opts Options) *Logger {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = zapcore.Lock(os.Stdout)
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = zapcore.Lock(os.Stderr)
	}

	console := opts.ConsoleVerbosity
	if console < Error {
		console = Error
	}

	errCore := zapcore.NewCore(consoleEncoder(), stderr, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.ErrorLevel && console.Enabled(l)
	}))
	outCore := zapcore.NewCore(consoleEncoder(), stdout, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l < zapcore.ErrorLevel && console.Enabled(l)
	}))

	l := &Logger{
		console: zapcore.NewTee(errCore, outCore),
		closer:  opts.Closer,
	}
	if opts.File != nil {
		fv := opts.FileVerbosity
		l.file = zapcore.NewCore(fileEncoder(), opts.File, zap.LevelEnablerFunc(fv.Enabled))
	}
	l.z = zap.New(l.tee())
	return l
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{console: zapcore.NewNopCore(), z: zap.NewNop()}
}

func (l *Logger) tee() zapcore.Core {
	if l.file == nil {
		return l.console
	}
	return zapcore.NewTee(l.console, l.file)
}

// WithRun tags every log file line with the run ID. Console output stays untagged.
func (l *Logger) WithRun(runID string) *Logger {
	out := &Logger{console: l.console}
	if l.file != nil {
		out.file = l.file.With([]zapcore.Field{zap.String("run", runID)})
	}
	out.z = zap.New(out.tee())
	return out
}

// Log emits msg at severity v. Messages are kept to a single line.
func (l *Logger) Log(v Verbosity, msg string) {
	lvl := v.Level()
	if lvl == zapcore.InvalidLevel {
		return
	}
	if strings.ContainsAny(msg, "\r\n") {
		msg = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(msg)
	}
	l.z.Log(lvl, msg)
}

func (l *Logger) Errorf(format string, args ...any)    { l.Log(Error, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)     { l.Log(Warning, fmt.Sprintf(format, args...)) }
func (l *Logger) Summaryf(format string, args ...any)  { l.Log(Summary, fmt.Sprintf(format, args...)) }
func (l *Logger) Detailedf(format string, args ...any) { l.Log(Detailed, fmt.Sprintf(format, args...)) }
func (l *Logger) Debugf(format string, args ...any)    { l.Log(Debug, fmt.Sprintf(format, args...)) }
func (l *Logger) Allf(format string, args ...any)      { l.Log(All, fmt.Sprintf(format, args...)) }

// Sync flushes all sinks.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// Close flushes and releases the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
