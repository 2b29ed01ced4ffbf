package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/slogtest"

	"github.com/google/go-cmp/cmp"
)

func TestWrapper(t *testing.T) {
	var buf bytes.Buffer
	results := func() (out []map[string]any) {
		dec := json.NewDecoder(&buf)
		for {
			v := make(map[string]any)
			err := dec.Decode(&v)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF):
				return out
			default:
				t.Error(err)
				return out
			}
			out = append(out, v)
		}
	}

	t.Run("Slogtest", func(t *testing.T) {
		h := WrapHandler(slog.NewJSONHandler(&buf, nil))
		if err := slogtest.TestHandler(h, results); err != nil {
			t.Error(err)
		}
	})

	t.Run("With", func(t *testing.T) {
		h := WrapHandler(slog.NewJSONHandler(&buf, nil))
		ctx := With(context.Background(), "tournament", "t1", "participant", 3)
		ctx = With(ctx, "participant", 5)
		slog.New(h).InfoContext(ctx, "acquired", "depth", 2)
		want := []map[string]any{
			{
				"level":       "INFO",
				"msg":         "acquired",
				"depth":       float64(2),
				"tournament":  "t1",
				"participant": float64(5),
			},
		}
		got := results()
		for _, m := range got {
			delete(m, "time")
		}
		if !cmp.Equal(got, want) {
			t.Error(cmp.Diff(got, want))
		}
	})

	t.Run("WithLevel", func(t *testing.T) {
		h := WrapHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
		l := slog.New(h)
		ctx := context.Background()
		l.DebugContext(ctx, "dropped")
		l.DebugContext(WithLevel(ctx, slog.LevelDebug), "kept")
		got := results()
		if len(got) != 1 {
			t.Fatalf("got %d records, want 1", len(got))
		}
		if got, want := got[0]["msg"], "kept"; got != want {
			t.Errorf("got: %v, want: %v", got, want)
		}
	})
}

func TestWrapHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	// The inner handler accepts everything.
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.Level(-100)})
	l := slog.New(WrapHandlerLevel(inner, slog.LevelInfo)).With("pool", "main")
	ctx := With(context.Background(), "participant", 1)

	l.DebugContext(ctx, "below minimum")
	l.InfoContext(ctx, "at minimum")
	l.DebugContext(WithLevel(ctx, slog.LevelDebug), "lowered")

	out := buf.String()
	if bytes.Contains(buf.Bytes(), []byte("below minimum")) {
		t.Errorf("record below the minimum was written:\n%s", out)
	}
	for _, want := range []string{
		`msg="at minimum" pool=main participant=1`,
		`msg=lowered pool=main participant=1`,
	} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWithDedup(t *testing.T) {
	ctx := With(context.Background(), "a", 1, "b", 2)
	ctx = WithAttr(ctx, slog.Int("a", 3), slog.Group("empty"))
	v := ctx.Value(AttrsKey).(slog.Value)
	var got []string
	for _, a := range v.Group() {
		got = append(got, a.String())
	}
	want := []string{"b=2", "a=3"}
	if !cmp.Equal(got, want) {
		t.Error(cmp.Diff(got, want))
	}
}
