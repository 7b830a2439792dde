package logging

import (
	"context"
	"log/slog"

	"github.com/telhawk-systems/debugconsole/internal/middleware"
)

// ContextHandler decorates a slog.Handler with request-scoped fields taken
// from the context passed to the *Context logging methods.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle adds request_id when ctx carries one.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		r.AddAttrs(slog.String(FieldRequestID, reqID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
