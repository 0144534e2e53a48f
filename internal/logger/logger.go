package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = newLogger(os.Stdout)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

func SetOutput(w io.Writer) {
	loggerMu.Lock()
	baseLogger = newLogger(w)
	loggerMu.Unlock()
}

// SetLevel accepts debug/info/warn/error; anything else falls back to info.
func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

func Level() slog.Level {
	return levelVar.Level()
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func activeLogger() *slog.Logger {
	loggerMu.RLock()
	l := baseLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(os.Stdout)
	}
	return baseLogger
}

func Debugf(format string, v ...any) {
	activeLogger().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	activeLogger().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	activeLogger().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	activeLogger().Error(fmt.Sprintf(format, v...))
}

// Entry is a logger bound to a fixed set of attributes, e.g. component=tick.
// It resolves the base logger on every call so SetOutput still applies.
type Entry struct {
	attrs []any
}

func With(args ...any) Entry {
	return Entry{attrs: append([]any(nil), args...)}
}

func (e Entry) With(args ...any) Entry {
	merged := make([]any, 0, len(e.attrs)+len(args))
	merged = append(merged, e.attrs...)
	merged = append(merged, args...)
	return Entry{attrs: merged}
}

func (e Entry) Debugf(format string, v ...any) {
	activeLogger().With(e.attrs...).Debug(fmt.Sprintf(format, v...))
}

func (e Entry) Infof(format string, v ...any) {
	activeLogger().With(e.attrs...).Info(fmt.Sprintf(format, v...))
}

func (e Entry) Warnf(format string, v ...any) {
	activeLogger().With(e.attrs...).Warn(fmt.Sprintf(format, v...))
}

func (e Entry) Errorf(format string, v ...any) {
	activeLogger().With(e.attrs...).Error(fmt.Sprintf(format, v...))
}

func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	lines := strings.Split(block, "\n")
	for _, line := range lines {
		Infof("%s", line)
	}
}
