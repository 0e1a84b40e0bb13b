package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes evaluated at log time.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}

// Session is the running server state stamped on every record.
type Session interface {
	SessionID() string
}

// SessionContext reports the match session, the last tick and the storage
// mode. tick may be nil. Attributes with no value are left out.
func SessionContext(s Session, tick func() uint, storage string) ContextProvider {
	return func() []slog.Attr {
		attrs := make([]slog.Attr, 0, 3)
		if id := s.SessionID(); id != "" {
			attrs = append(attrs, slog.String("match", id))
		}
		if tick != nil {
			attrs = append(attrs, slog.Uint64("tick", uint64(tick())))
		}
		if storage != "" {
			attrs = append(attrs, slog.String("storage", storage))
		}
		return attrs
	}
}
