package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LineSink receives formatted log lines. The shared client state implements
// it so the dashboard can show recent activity.
type LineSink interface {
	AddLog(line string)
}

// RecordingHandler is a slog.Handler that renders each record as a compact
// single line ("15:04:05 INFO msg key=value") and hands it to a LineSink.
type RecordingHandler struct {
	sink   LineSink
	level  slog.Leveler
	attrs  []boundAttr
	groups []string
}

// boundAttr is an attribute added by WithAttrs, keyed under the groups open
// at that time.
type boundAttr struct {
	prefix string
	attr   slog.Attr
}

// NewRecordingHandler creates a handler writing records at or above level to sink.
func NewRecordingHandler(sink LineSink, level slog.Leveler) *RecordingHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &RecordingHandler{sink: sink, level: level}
}

// Enabled implements slog.Handler.
func (h *RecordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *RecordingHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	for _, ba := range h.attrs {
		writeAttr(&b, ba.prefix, ba.attr)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)
		return true
	})

	h.sink.AddLog(b.String())
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RecordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := strings.Join(h.groups, ".")
	clone := *h
	clone.attrs = append([]boundAttr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, boundAttr{prefix: prefix, attr: a})
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *RecordingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}

// teeHandler fans records out to several handlers.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: hs}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: hs}
}
