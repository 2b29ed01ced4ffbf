package lockcore

import (
	"errors"
	"fmt"
	"testing"
)

func ExampleError() {
	fmt.Println(&Error{
		Kind:    ErrNoFreeSlots,
		Message: "all 16 slots active",
		Op:      "pool.Create",
	})
	inner := &Error{
		Kind:    ErrLockInactive,
		Message: "slot 3",
		Op:      "pool.Acquire",
	}
	fmt.Println(&Error{
		Inner:   inner,
		Kind:    ErrAcquireFailed,
		Message: "level 1",
		Op:      "tournament.Acquire",
	})
	fmt.Println(fmt.Errorf("worker: %w", inner))
	fmt.Println(&Error{Inner: inner, Kind: ErrReleaseFailed})

	// Output:
	// pool.Create [no free slots]: all 16 slots active
	// tournament.Acquire [acquire failed]: level 1: pool.Acquire [lock inactive]: slot 3
	// worker: pool.Acquire [lock inactive]: slot 3
	// pool.Acquire [lock inactive]: slot 3
}

func TestKinds(t *testing.T) {
	inner := &Error{Kind: ErrDestroyedWhileWaiting, Op: "pool.Acquire"}
	outer := fmt.Errorf("participant 3: %w", &Error{
		Inner: inner,
		Kind:  ErrAcquireFailed,
		Op:    "tournament.Acquire",
	})
	tt := []struct {
		Kind ErrorKind
		Want bool
	}{
		{ErrAcquireFailed, true},
		{ErrDestroyedWhileWaiting, true},
		{ErrReleaseFailed, false},
		{ErrLockInactive, false},
	}
	for _, tc := range tt {
		if got, want := errors.Is(outer, tc.Kind), tc.Want; got != want {
			t.Errorf("%v: got: %v, want: %v", tc.Kind, got, want)
		}
	}

	var e *Error
	if !errors.As(outer, &e) {
		t.Fatal("unable to find *Error in chain")
	}
	if got, want := e.Kind, ErrAcquireFailed; got != want {
		t.Errorf("got: %v, want: %v", got, want)
	}
}

func TestUnknownKind(t *testing.T) {
	err := &Error{Kind: ErrorKind("made up"), Op: "Test"}
	if got, want := err.Error(), "Test [???]: "; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}
