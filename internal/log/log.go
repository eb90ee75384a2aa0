// Package log is a small leveled key/value logger shared by the CLI, the
// planner and the local server. Output goes to stderr so it never mixes
// with command output on stdout.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	mu       sync.Mutex
	level    = new(slog.LevelVar)
	logger   *slog.Logger
	initOnce sync.Once
)

func initLogger() {
	initOnce.Do(func() {
		level.Set(slog.LevelError)
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	})
}

// ParseLevel maps a config string to a Level. Unknown values map to ERROR,
// which keeps interactive CLI output quiet.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	default:
		return LevelError
	}
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		level.Set(slog.LevelDebug)
	case LevelInfo:
		level.Set(slog.LevelInfo)
	default:
		level.Set(slog.LevelError)
	}
}

// SetOutput redirects log output; tests use it to capture lines.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func current() *slog.Logger {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func Debug(msg string, kv ...any) {
	current().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Info(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	current().Error(msg, extended...)
}
