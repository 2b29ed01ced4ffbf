package log

import (
	"context"
	"log/slog"
)

// WrapHandler returns a [slog.Handler] that adds the attributes stored at
// [AttrsKey] to every record and honors a level stored at [LevelKey].
func WrapHandler(next slog.Handler) slog.Handler {
	return handler{next: next}
}

// WrapHandlerLevel is like [WrapHandler], but also drops records below "floor"
// before consulting "next". A level stored at [LevelKey] still lets records
// through.
//
// This is for handlers that leave filtering to something downstream, such as
// an OTel log bridge.
func WrapHandlerLevel(next slog.Handler, floor slog.Leveler) slog.Handler {
	return handler{next: next, min: floor}
}

var _ slog.Handler = handler{}

type handler struct {
	next slog.Handler
	min  slog.Leveler // Optional.
}

// Enabled implements [slog.Handler].
func (h handler) Enabled(ctx context.Context, l slog.Level) bool {
	if lv, ok := ctx.Value(LevelKey).(slog.Leveler); ok && l >= lv.Level() {
		return true
	}
	if h.min != nil && l < h.min.Level() {
		return false
	}
	return h.next.Enabled(ctx, l)
}

// Handle implements [slog.Handler].
func (h handler) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(AttrsKey).(slog.Value); ok {
		r.AddAttrs(v.Group()...)
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler].
func (h handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handler{next: h.next.WithAttrs(attrs), min: h.min}
}

// WithGroup implements [slog.Handler].
func (h handler) WithGroup(name string) slog.Handler {
	return handler{next: h.next.WithGroup(name), min: h.min}
}
