package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is the process-wide structured logger for fsbadge.
// Until Init is called it only feeds RecentErrors; everything else is dropped.
var (
	mu     gosync.RWMutex
	logger = slog.New(&errorCaptureHandler{})
)

// Init configures the logger.
// Always enables console output: INFO→stdout, WARN/ERROR→stderr.
// If logDir is non-empty, also writes to level-split log files:
//   - fsbadge_warn.log : WARN + ERROR
//   - fsbadge_info.log : INFO only (1MB, 1 backup)
//   - fsbadge_debug.log: DEBUG only (1MB, 1 backup)
func Init(logDir string) error {
	console := &consoleHandler{
		stdout: slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		stderr: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}

	handlers := []slog.Handler{console, &errorCaptureHandler{}}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0750); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		handlers = append(handlers, fileHandlers(logDir)...)
	}

	Set(slog.New(&multiHandler{handlers: handlers}))
	return nil
}

func fileHandlers(logDir string) []slog.Handler {
	warnFile := slog.NewTextHandler(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "fsbadge_warn.log"),
		MaxSize:    100,
		MaxBackups: 3,
	}, &slog.HandlerOptions{Level: slog.LevelWarn})

	infoFile := &levelRangeHandler{
		min: slog.LevelInfo,
		max: slog.LevelInfo,
		inner: slog.NewTextHandler(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, "fsbadge_info.log"),
			MaxSize:    1,
			MaxBackups: 1,
		}, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}

	debugFile := &levelRangeHandler{
		min: slog.LevelDebug,
		max: slog.LevelDebug,
		inner: slog.NewTextHandler(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, "fsbadge_debug.log"),
			MaxSize:    1,
			MaxBackups: 1,
		}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}

	return []slog.Handler{warnFile, infoFile, debugFile}
}

// Set replaces the logger. Tests use it to capture output.
func Set(l *slog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sub returns a child logger tagged with the given component name.
func Sub(component string) *slog.Logger {
	return current().With("comp", component)
}

// Enabled reports whether the given log level is enabled.
// Use this to guard expensive DEBUG logging in hot paths.
func Enabled(level slog.Level) bool {
	return current().Enabled(context.Background(), level)
}

// --- consoleHandler: routes INFO→stdout, WARN+→stderr ---

type consoleHandler struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *consoleHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderr.Handle(ctx, r)
	}
	return h.stdout.Handle(ctx, r)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{
		stdout: h.stdout.WithAttrs(attrs),
		stderr: h.stderr.WithAttrs(attrs),
	}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	return &consoleHandler{
		stdout: h.stdout.WithGroup(name),
		stderr: h.stderr.WithGroup(name),
	}
}

// --- errorCapture: keeps the most recent error-level records ---

// Entry is a captured error log entry.
type Entry struct {
	Time    time.Time `json:"time" yaml:"time"`
	Comp    string    `json:"comp" yaml:"comp"`
	Message string    `json:"message" yaml:"message"`
	Error   string    `json:"error,omitempty" yaml:"error,omitempty"`
}

const ringSize = 4

var errorRing struct {
	mu      gosync.Mutex
	entries [ringSize]Entry
	count   int
}

// RecentErrors returns the most recent error log entries, newest first.
func RecentErrors() []Entry {
	errorRing.mu.Lock()
	defer errorRing.mu.Unlock()
	n := min(errorRing.count, ringSize)
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = errorRing.entries[(errorRing.count-1-i)%ringSize]
	}
	return out
}

type errorCaptureHandler struct {
	attrs []slog.Attr
}

func (h *errorCaptureHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *errorCaptureHandler) Handle(_ context.Context, r slog.Record) error {
	entry := Entry{
		Time:    r.Time,
		Message: r.Message,
	}
	capture := func(a slog.Attr) bool {
		switch a.Key {
		case "comp":
			entry.Comp = a.Value.String()
		case "err":
			entry.Error = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		capture(a)
	}
	r.Attrs(capture)

	errorRing.mu.Lock()
	errorRing.entries[errorRing.count%ringSize] = entry
	errorRing.count++
	errorRing.mu.Unlock()
	return nil
}

// Sub() attaches "comp" via With, so attrs must be kept to be captured.
func (h *errorCaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &errorCaptureHandler{attrs: merged}
}

func (h *errorCaptureHandler) WithGroup(_ string) slog.Handler { return h }

// --- levelRangeHandler: passes only a specific level range ---

type levelRangeHandler struct {
	min, max slog.Level
	inner    slog.Handler
}

func (h *levelRangeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min && level <= h.max
}

func (h *levelRangeHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *levelRangeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRangeHandler{min: h.min, max: h.max, inner: h.inner.WithAttrs(attrs)}
}

func (h *levelRangeHandler) WithGroup(name string) slog.Handler {
	return &levelRangeHandler{min: h.min, max: h.max, inner: h.inner.WithGroup(name)}
}

// --- multiHandler: fans out to multiple handlers ---

type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, r.Level) {
			if err := hh.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		hs[i] = hh.WithAttrs(attrs)
	}
	return &multiHandler{handlers: hs}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		hs[i] = hh.WithGroup(name)
	}
	return &multiHandler{handlers: hs}
}
