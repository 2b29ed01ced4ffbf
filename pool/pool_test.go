package pool

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/quay/lockcore"
	"github.com/quay/lockcore/test"
)

func TestExhaustion(t *testing.T) {
	ctx := test.Logging(t)
	p := New()

	for i := 0; i < p.Capacity(); i++ {
		h, err := p.Create(ctx)
		if err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
		if got, want := h, lockcore.Handle(i); got != want {
			t.Errorf("create #%d: got: %v, want: %v", i, got, want)
		}
	}
	var before []Snapshot
	for i := 0; i < p.Capacity(); i++ {
		s, err := p.Inspect(lockcore.Handle(i))
		if err != nil {
			t.Fatal(err)
		}
		before = append(before, s)
	}

	h, err := p.Create(ctx)
	if !errors.Is(err, lockcore.ErrNoFreeSlots) {
		t.Errorf("got: %v, want: %v", err, lockcore.ErrNoFreeSlots)
	}
	if h != -1 {
		t.Errorf("got handle %v on failure", h)
	}
	t.Log(err)

	var after []Snapshot
	for i := 0; i < p.Capacity(); i++ {
		s, err := p.Inspect(lockcore.Handle(i))
		if err != nil {
			t.Fatal(err)
		}
		after = append(after, s)
	}
	if !cmp.Equal(before, after) {
		t.Error(cmp.Diff(before, after))
	}
	if got, want := p.Free(), 0; got != want {
		t.Errorf("free: got: %d, want: %d", got, want)
	}
}

func TestCapacityOption(t *testing.T) {
	ctx := test.Logging(t)
	p := New(WithCapacity(2))
	if got, want := p.Capacity(), 2; got != want {
		t.Fatalf("got: %d, want: %d", got, want)
	}
	for range 2 {
		if _, err := p.Create(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.Create(ctx); !errors.Is(err, lockcore.ErrNoFreeSlots) {
		t.Errorf("got: %v, want: %v", err, lockcore.ErrNoFreeSlots)
	}

	if got, want := New(WithCapacity(0)).Capacity(), DefaultCapacity; got != want {
		t.Errorf("got: %d, want: %d", got, want)
	}
}

func TestDestroy(t *testing.T) {
	ctx := test.Logging(t)
	p := New(WithCapacity(4))

	tt := []struct {
		Name   string
		Handle lockcore.Handle
		Want   error
	}{
		{Name: "Negative", Handle: -1, Want: lockcore.ErrInvalidHandle},
		{Name: "PastEnd", Handle: 4, Want: lockcore.ErrInvalidHandle},
		{Name: "NeverAllocated", Handle: 2, Want: lockcore.ErrAlreadyInactive},
	}
	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			err := p.Destroy(ctx, tc.Handle)
			t.Log(err)
			if !errors.Is(err, tc.Want) {
				t.Errorf("got: %v, want: %v", err, tc.Want)
			}
		})
	}

	t.Run("Twice", func(t *testing.T) {
		h, err := p.Create(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if err := p.Destroy(ctx, h); err != nil {
			t.Fatal(err)
		}
		if err := p.Destroy(ctx, h); !errors.Is(err, lockcore.ErrAlreadyInactive) {
			t.Errorf("got: %v, want: %v", err, lockcore.ErrAlreadyInactive)
		}
	})
}

func TestReuse(t *testing.T) {
	ctx := test.Logging(t)
	p := New(WithCapacity(2))

	h, err := p.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Acquire(h, lockcore.Role1); err != nil {
		t.Fatal(err)
	}
	first, err := p.Inspect(h)
	if err != nil {
		t.Fatal(err)
	}
	want := Snapshot{
		Active:     true,
		Interest:   [2]bool{false, true},
		Turn:       lockcore.Role0,
		Generation: 1,
	}
	if !cmp.Equal(first, want) {
		t.Error(cmp.Diff(first, want))
	}

	if err := p.Destroy(ctx, h); err != nil {
		t.Fatal(err)
	}
	if s, _ := p.Inspect(h); s.Active || s.Interest != [2]bool{} {
		t.Errorf("destroyed slot not reset: %+v", s)
	}

	again, err := p.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := again, h; got != want {
		t.Errorf("got: %v, want: %v", got, want)
	}
	second, err := p.Inspect(again)
	if err != nil {
		t.Fatal(err)
	}
	want = Snapshot{
		Active:     true,
		Turn:       lockcore.Role0,
		Generation: 2,
	}
	if !cmp.Equal(second, want) {
		t.Error(cmp.Diff(second, want))
	}
}

func TestStat(t *testing.T) {
	ctx := test.Logging(t)
	p := New(WithCapacity(3))
	a, _ := p.Create(ctx)
	b, _ := p.Create(ctx)
	if err := p.Acquire(a, lockcore.Role0); err != nil {
		t.Fatal(err)
	}
	if err := p.Release(a, lockcore.Role0); err != nil {
		t.Fatal(err)
	}
	if err := p.Destroy(ctx, b); err != nil {
		t.Fatal(err)
	}

	got := p.Stat()
	want := Stat{
		Capacity: 3,
		Active:   1,
		Creates:  2,
		Destroys: 1,
		Acquires: 1,
	}
	if !cmp.Equal(got, want) {
		t.Error(cmp.Diff(got, want))
	}
}

func TestInspectRange(t *testing.T) {
	p := New(WithCapacity(1))
	for _, h := range []lockcore.Handle{-1, 1} {
		if _, err := p.Inspect(h); !errors.Is(err, lockcore.ErrInvalidArgument) {
			t.Errorf("%v: got: %v, want: %v", h, err, lockcore.ErrInvalidArgument)
		}
	}
}
