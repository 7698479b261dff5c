package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var log *slog.Logger
var logLevel slog.Level

func init() {
	// Supports: debug, info, warn, error (case-insensitive)
	logLevel = parseLevel(os.Getenv("LOG_LEVEL"))

	log = slog.New(newHandler(os.Stdout))
	slog.SetDefault(log)
}

func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
}

// FileOptions controls rotation of the log file set up by UseFile.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// UseFile sends log output to a rotating file in addition to stdout.
// An empty path leaves the stdout-only handler in place.
func UseFile(opts FileOptions) io.Closer {
	if opts.Path == "" {
		return nopCloser{}
	}
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 20
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 5
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	log = slog.New(newHandler(io.MultiWriter(os.Stdout, rotator)))
	slog.SetDefault(log)
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Debug logs a debug message with structured fields
func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

// Info logs an informational message with structured fields
func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

// Warn logs a warning message with structured fields
func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

// Error logs an error message with structured fields
func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

// Fatal logs an error message and exits with status 1
func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// SetOutputForTest redirects log output to a custom writer for testing.
// Returns a cleanup function that restores the original output.
func SetOutputForTest(w io.Writer) func() {
	originalHandler := log.Handler()
	log = slog.New(newHandler(w))
	slog.SetDefault(log)
	return func() {
		log = slog.New(originalHandler)
		slog.SetDefault(log)
	}
}
