package server

import (
	"context"
	"log/slog"

	"github.com/venslabs/depaudit/pkg/requestid"
)

// NewContextHandler wraps h so that records logged with a request context
// carry a request_id attribute.
func NewContextHandler(h slog.Handler) slog.Handler {
	return &contextHandler{Handler: h}
}

type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.From(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
