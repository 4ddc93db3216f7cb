package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

// New returns a slog.Logger with a concise single-line format, ex.
// [INFO] fetched exports count=42
// Debug-level records only emit when verbose is set.
func New(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(&lineHandler{minLevel: level, w: w})
}

type lineHandler struct {
	mu       sync.Mutex
	minLevel slog.Level
	w        io.Writer
	attrs    []slog.Attr
	group    string
}

func (h *lineHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.minLevel
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(r.Level.String()), r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, renderValue(a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%s", key, renderValue(a.Value))
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String()+"\n")
	return err
}

// renderValue quotes only when the bare text would be ambiguous.
func renderValue(v slog.Value) string {
	v = v.Resolve()
	s := v.String()
	if v.Kind() == slog.KindString || v.Kind() == slog.KindAny {
		if s == "" || strings.ContainsAny(s, " =\"") {
			return strconv.Quote(s)
		}
	}
	return s
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		merged = append(merged, a)
	}
	return &lineHandler{minLevel: h.minLevel, w: h.w, attrs: merged, group: h.group}
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &lineHandler{minLevel: h.minLevel, w: h.w, attrs: h.attrs, group: group}
}
