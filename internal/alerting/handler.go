package alerting

import (
	"context"
	"log/slog"
	"time"
)

// Handler is a slog.Handler that passes every record on to the next
// handler and additionally forwards ERROR records to a Sink. Delivery
// failures are swallowed so alerting can never break logging.
type Handler struct {
	next    slog.Handler
	sink    Sink
	timeout time.Duration
	attrs   []slog.Attr
	group   string
}

// NewHandler wraps next
func NewHandler(next slog.Handler, sink Sink, timeout time.Duration) *Handler {
	if sink == nil {
		sink = NopSink{}
	}
	return &Handler{next: next, sink: sink, timeout: timeout}
}

// Wrap adapts NewHandler to a handler decorator
func Wrap(sink Sink, timeout time.Duration) func(slog.Handler) slog.Handler {
	return func(next slog.Handler) slog.Handler {
		return NewHandler(next, sink, timeout)
	}
}

// Enabled implements slog.Handler
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)

	if r.Level >= slog.LevelError {
		h.forward(ctx, r)
	}
	return err
}

func (h *Handler) forward(ctx context.Context, r slog.Record) {
	event := Event{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make(map[string]string),
	}
	for _, a := range h.attrs {
		event.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		event.Attrs[h.key(a.Key)] = a.Value.String()
		return true
	})

	sendCtx := context.WithoutCancel(ctx)
	if h.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, h.timeout)
		defer cancel()
	}
	_ = h.sink.Send(sendCtx, event)
}

func (h *Handler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// WithAttrs implements slog.Handler
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &clone
}

// WithGroup implements slog.Handler
func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.group = h.key(name)
	return &clone
}
