package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"

	"github.com/quay/lockcore"
)

// Slot is one Peterson lock.
//
// The guard serializes the setup and every check of the wait condition with
// Destroy, so a waiter can never miss a destruction. The protocol fields are
// atomics regardless: they're published to the opposing role's wait loop and
// read by Inspect.
type slot struct {
	mu       sync.Mutex
	active   atomic.Bool
	interest [2]atomic.Bool
	turn     atomic.Int32
	// Gen is bumped on every allocation. A waiter that sees a different
	// generation than the one it started with treats the lock as destroyed,
	// even if the slot has been handed out again in the meantime.
	gen atomic.Uint64
}

// Activate resets the protocol state and marks the slot allocated. The slot
// guard must be held.
func (s *slot) activate() {
	s.interest[0].Store(false)
	s.interest[1].Store(false)
	s.turn.Store(0)
	s.gen.Add(1)
	s.active.Store(true)
}

// Deactivate marks the slot free and resets the protocol state. The slot
// guard must be held.
func (s *slot) deactivate() {
	s.active.Store(false)
	s.interest[0].Store(false)
	s.interest[1].Store(false)
	s.turn.Store(0)
}

// Contended reports whether a caller with role "r" must keep waiting.
func (s *slot) contended(r lockcore.Role) bool {
	o := r.Other()
	return s.interest[o].Load() && lockcore.Role(s.turn.Load()) == o
}

// Acquire takes the lock named by the handle as the given role, waiting as
// long as the opposing role holds it or has priority.
//
// The returned error is of kind:
//
//   - [lockcore.ErrInvalidArgument] if the role is not 0 or 1, or the handle is
//     out of range
//   - [lockcore.ErrLockInactive] if the slot is not allocated
//   - [lockcore.ErrDestroyedWhileWaiting] if the lock was destroyed before it
//     could be taken
//
// While waiting, the caller yields with the Pool's [Yielder] between checks.
// There is no timeout; a waiter returns only when it takes the lock or the lock
// is destroyed.
func (p *Pool) Acquire(h lockcore.Handle, r lockcore.Role) error {
	const op = `pool.Acquire`
	s, err := p.slotFor(op, h, r)
	if err != nil {
		acquireCounter.Add(context.Background(), 1, metric.WithAttributeSet(failAttrs))
		return err
	}

	s.mu.Lock()
	if !s.active.Load() {
		s.mu.Unlock()
		acquireCounter.Add(context.Background(), 1, metric.WithAttributeSet(failAttrs))
		return &lockcore.Error{
			Kind:    lockcore.ErrLockInactive,
			Op:      op,
			Message: h.String(),
		}
	}
	gen := s.gen.Load()
	gone := func() bool {
		return !s.active.Load() || s.gen.Load() != gen
	}

	s.interest[r].Store(true)
	s.turn.Store(int32(r.Other()))

	var n int64
	for s.contended(r) {
		if gone() {
			s.mu.Unlock()
			return p.abandon(op, h, r, n)
		}
		s.mu.Unlock()
		n++
		p.yield()
		s.mu.Lock()
	}
	// Have the lock, unless it went away between the last yield and now.
	if gone() {
		s.mu.Unlock()
		return p.abandon(op, h, r, n)
	}
	s.mu.Unlock()

	p.acquires.Add(1)
	p.yields.Add(n)
	ctx := context.Background()
	acquireCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
	yieldHistogram.Record(ctx, n)
	return nil
}

// Abandon accounts for a waiter that observed the slot being destroyed.
func (p *Pool) abandon(op string, h lockcore.Handle, r lockcore.Role, yields int64) error {
	p.abandoned.Add(1)
	p.yields.Add(yields)
	ctx := context.Background()
	acquireCounter.Add(ctx, 1, metric.WithAttributeSet(abandonAttrs))
	yieldHistogram.Record(ctx, yields)
	return &lockcore.Error{
		Kind:    lockcore.ErrDestroyedWhileWaiting,
		Op:      op,
		Message: fmt.Sprintf("%v role %d after %d yields", h, r, yields),
	}
}

// Release gives up the lock named by the handle as the given role. It never
// waits.
//
// The returned error is of kind [lockcore.ErrInvalidArgument] if the role is
// not 0 or 1 or the handle is out of range, or [lockcore.ErrLockInactive] if
// the slot is not allocated.
//
// Handles carry no generation, so Release can't tell a lock from a later
// allocation of the same slot. Callers that may outlive their lock should
// record [Snapshot.Generation] after Create and compare it before releasing.
func (p *Pool) Release(h lockcore.Handle, r lockcore.Role) error {
	const op = `pool.Release`
	s, err := p.slotFor(op, h, r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return &lockcore.Error{
			Kind:    lockcore.ErrLockInactive,
			Op:      op,
			Message: h.String(),
		}
	}
	s.interest[r].Store(false)
	return nil
}

// SlotFor validates the arguments common to Acquire and Release.
func (p *Pool) slotFor(op string, h lockcore.Handle, r lockcore.Role) (*slot, error) {
	switch {
	case !r.Valid():
		return nil, &lockcore.Error{
			Kind:    lockcore.ErrInvalidArgument,
			Op:      op,
			Message: fmt.Sprintf("bad role %d", r),
		}
	case !p.inRange(h):
		return nil, &lockcore.Error{
			Kind:    lockcore.ErrInvalidArgument,
			Op:      op,
			Message: fmt.Sprintf("%v out of range [0, %d)", h, len(p.slots)),
		}
	}
	return &p.slots[h], nil
}
