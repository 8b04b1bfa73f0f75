package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes to attach to a record, e.g. the current
// match id and tick. ctx is the context passed to the logging call.
type ContextProvider func(ctx context.Context) []slog.Attr

// ContextHandler wraps another handler and injects provider attributes.
// Keys the record or the logger already carry are not injected again.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
	preset   map[string]struct{}
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.inner.Handle(ctx, r)
	}
	extra := h.provider(ctx)
	if len(extra) == 0 {
		return h.inner.Handle(ctx, r)
	}

	seen := make(map[string]struct{}, len(h.preset)+r.NumAttrs())
	for k := range h.preset {
		seen[k] = struct{}{}
	}
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = struct{}{}
		return true
	})
	for _, a := range extra {
		if _, dup := seen[a.Key]; !dup {
			r.AddAttrs(a)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	preset := make(map[string]struct{}, len(h.preset)+len(attrs))
	for k := range h.preset {
		preset[k] = struct{}{}
	}
	for _, a := range attrs {
		preset[a.Key] = struct{}{}
	}
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider, preset: preset}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider, preset: h.preset}
}

type playerKey struct{}

// WithPlayer returns a context whose log records carry tankID.
func WithPlayer(ctx context.Context, tankID int) context.Context {
	return context.WithValue(ctx, playerKey{}, tankID)
}

// PlayerAttrs is a ContextProvider that reports the tank set by WithPlayer.
func PlayerAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	if id, ok := ctx.Value(playerKey{}).(int); ok {
		return []slog.Attr{slog.Int("tankID", id)}
	}
	return nil
}

// CombineProviders runs every provider and concatenates their attributes.
func CombineProviders(providers ...ContextProvider) ContextProvider {
	return func(ctx context.Context) []slog.Attr {
		var attrs []slog.Attr
		for _, p := range providers {
			if p != nil {
				attrs = append(attrs, p(ctx)...)
			}
		}
		return attrs
	}
}
