package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Graylog2/go-gelf/gelf"
)

// MessageWriter sends one GELF message. *gelf.Writer satisfies it.
type MessageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// NewGraylogWriter dials a GELF UDP endpoint such as "localhost:12201".
func NewGraylogWriter(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("graylog writer for %s: %w", addr, err)
	}
	return w, nil
}

// GelfHandler is a slog.Handler that turns every record into a GELF
// message. Attributes become additional fields; groups are dotted.
type GelfHandler struct {
	w        MessageWriter
	facility string
	host     string
	level    slog.Leveler
	attrs    []slog.Attr
	group    string
}

// NewGelfHandler returns a handler writing records at or above level to w.
func NewGelfHandler(w MessageWriter, facility string, level slog.Leveler) *GelfHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GelfHandler{w: w, facility: facility, host: host, level: level}
}

func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addGelfField(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addGelfField(extra, h.group, a)
		return true
	})

	short, full, _ := strings.Cut(r.Message, "\n")
	msg := &gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    short,
		Full:     full,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    syslogLevel(r.Level),
		Facility: h.facility,
		Extra:    extra,
	}
	return h.w.WriteMessage(msg)
}

func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func addGelfField(extra map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addGelfField(extra, key, ga)
		}
		return
	}
	if key == "" {
		return
	}
	switch a.Value.Kind() {
	case slog.KindString:
		extra[key] = a.Value.String()
	case slog.KindInt64:
		extra[key] = a.Value.Int64()
	case slog.KindUint64:
		extra[key] = a.Value.Uint64()
	case slog.KindFloat64:
		extra[key] = a.Value.Float64()
	case slog.KindBool:
		extra[key] = a.Value.Bool()
	default:
		extra[key] = a.Value.String()
	}
}

// syslogLevel maps slog levels onto the syslog severities GELF uses.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
