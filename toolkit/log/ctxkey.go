// Package log carries [slog.Attr] values and per-call minimum levels in a
// [context.Context], so lockcore packages can use the package-level
// [slog.InfoContext] family of functions and still emit participant-scoped
// records.
package log

import (
	"context"
	"log/slog"
	"slices"
)

type ctxkey int

const (
	_ ctxkey = iota

	// AttrsKey retrieves the extra attributes stored by [With] and
	// [WithAttr]. The value is a [slog.Value] of kind "Group".
	AttrsKey

	// LevelKey retrieves the [slog.Leveler] stored by [WithLevel].
	LevelKey
)

// With returns a context with the key-value arguments stored as [slog.Attr]
// at [AttrsKey]. Arguments are interpreted the same way as [slog.Logger.Log].
func With(ctx context.Context, args ...any) context.Context {
	return WithAttr(ctx, toAttrs(args)...)
}

// WithAttr returns a context with the attributes appended to any already at
// [AttrsKey]. A later attribute replaces an earlier one with the same key.
func WithAttr(ctx context.Context, attrs ...slog.Attr) context.Context {
	if v, ok := ctx.Value(AttrsKey).(slog.Value); ok {
		attrs = append(slices.Clone(v.Group()), attrs...)
	}
	out := make([]slog.Attr, 0, len(attrs))
	seen := make(map[string]struct{}, len(attrs))
	for i := len(attrs) - 1; i >= 0; i-- {
		a := attrs[i]
		if _, dup := seen[a.Key]; dup {
			continue
		}
		seen[a.Key] = struct{}{}
		if a.Value.Kind() == slog.KindGroup && len(a.Value.Group()) == 0 {
			continue
		}
		out = append(out, a)
	}
	slices.Reverse(out)
	return context.WithValue(ctx, AttrsKey, slog.GroupValue(out...))
}

// WithLevel returns a context that lowers the minimum level for records
// logged with it.
func WithLevel(ctx context.Context, l slog.Leveler) context.Context {
	return context.WithValue(ctx, LevelKey, l)
}

func toAttrs(args []any) []slog.Attr {
	const badKey = `!BADKEY`
	var attrs []slog.Attr
	for len(args) > 0 {
		switch x := args[0].(type) {
		case string:
			if len(args) == 1 {
				attrs = append(attrs, slog.String(badKey, x))
				args = nil
				continue
			}
			attrs = append(attrs, slog.Any(x, args[1]))
			args = args[2:]
		case slog.Attr:
			attrs = append(attrs, x)
			args = args[1:]
		default:
			attrs = append(attrs, slog.Any(badKey, x))
			args = args[1:]
		}
	}
	return attrs
}
