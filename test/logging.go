// Package test holds helpers shared by lockcore tests.
package test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quay/lockcore/toolkit/log"
)

// Setup installs the context-dispatching handler as the default exactly once.
var setup = sync.OnceFunc(func() {
	slog.SetDefault(slog.New(dispatch(nil)))
})

type ctxKey struct{}

// Dispatch implements [slog.Handler] by looking up the concrete handler in the
// [context.Context] of each call. The slice holds deferred WithAttrs and
// WithGroup calls, replayed against the concrete handler.
//
// Records logged with a Context that has no handler are dropped, so
// goroutines that outlive their test don't write to a finished [testing.TB].
type dispatch []func(slog.Handler) slog.Handler

var _ slog.Handler = dispatch(nil)

func (d dispatch) lookup(ctx context.Context) (slog.Handler, bool) {
	h, ok := ctx.Value(ctxKey{}).(slog.Handler)
	return h, ok
}

// Enabled implements [slog.Handler].
func (d dispatch) Enabled(ctx context.Context, l slog.Level) bool {
	h, ok := d.lookup(ctx)
	return ok && h.Enabled(ctx, l)
}

// Handle implements [slog.Handler].
func (d dispatch) Handle(ctx context.Context, r slog.Record) error {
	h, ok := d.lookup(ctx)
	if !ok {
		return nil
	}
	for _, op := range d {
		h = op(h)
	}
	if v, ok := ctx.Value(log.AttrsKey).(slog.Value); ok {
		r.AddAttrs(v.Group()...)
	}
	return h.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler].
func (d dispatch) WithAttrs(attrs []slog.Attr) slog.Handler {
	return append(d[:len(d):len(d)], func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	})
}

// WithGroup implements [slog.Handler].
func (d dispatch) WithGroup(name string) slog.Handler {
	return append(d[:len(d):len(d)], func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	})
}

// Logging returns a [context.Context] that makes the default [slog.Logger]
// write to the test's log output.
//
// Only the first element of "parent" is used, if provided.
func Logging(t testing.TB, parent ...context.Context) context.Context {
	setup()
	ctx := context.Background()
	if len(parent) > 0 {
		ctx = parent[0]
	}
	start := time.Now()
	h := slog.NewTextHandler(&tbWriter{tb: t}, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(g []string, a slog.Attr) slog.Attr {
			if g != nil {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, "+"+time.Since(start).String())
			case slog.SourceKey:
				src, ok := a.Value.Any().(*slog.Source)
				if !ok {
					return a
				}
				return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return a
		},
	})
	return context.WithValue(ctx, ctxKey{}, slog.Handler(h))
}

// TbWriter adapts a [testing.TB] to an [io.Writer], one Log call per record.
type tbWriter struct {
	mu sync.Mutex
	tb testing.TB
}

var _ io.Writer = (*tbWriter)(nil)

func (w *tbWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tb.Helper()
	w.tb.Log(strings.TrimSuffix(string(b), "\n"))
	return len(b), nil
}
