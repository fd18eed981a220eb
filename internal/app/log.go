package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// LogFileName is the log file inside the configured log_dir.
const LogFileName = "fsinv.log"

// invHandler is a slog.Handler writing one tab-separated line per record:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Scan workers log concurrently, so each line is assembled first and written
// with a single call under a lock shared by every derived handler.
type invHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	opID  string
	level slog.Level
	attrs []slog.Attr
}

func newInvHandler(w io.Writer, opID string, level slog.Level) *invHandler {
	return &invHandler{mu: &sync.Mutex{}, w: w, opID: opID, level: level}
}

func (h *invHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *invHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05Z"))
	b.WriteByte('\t')
	b.WriteString(r.Level.String())
	b.WriteByte('\t')
	b.WriteString(h.opID)
	b.WriteByte('\t')
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		appendAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// appendAttr writes "\tkey=value", quoting values that would break the
// tab-separated layout, such as paths with spaces.
func appendAttr(b *strings.Builder, a slog.Attr) {
	v := a.Value.Resolve().String()
	if v == "" || strings.ContainsAny(v, " \t\n\r\"") {
		v = strconv.Quote(v)
	}
	b.WriteByte('\t')
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(v)
}

func (h *invHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *invHandler) WithGroup(string) slog.Handler { return h }

// newLogger opens logDir/fsinv.log and returns a logger writing to it and,
// unless quiet, to stderr. Debug records are kept only when verbose.
// The caller closes the returned file.
func newLogger(logDir, opID string, quiet, verbose bool) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var w io.Writer = f
	if !quiet {
		w = io.MultiWriter(f, os.Stderr)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(newInvHandler(w, opID, level)), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the inv.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
