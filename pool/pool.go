// Package pool manages a fixed-capacity table of two-party Peterson locks.
//
// Callers allocate a lock with [Pool.Create] and receive a
// [lockcore.Handle]. The two contending parties then use [Pool.Acquire] and
// [Pool.Release] with role 0 and role 1 respectively. [Pool.Destroy] returns
// the slot to the pool, and may be called while another goroutine is waiting
// in Acquire on the same handle: that waiter returns an error of kind
// [lockcore.ErrDestroyedWhileWaiting] instead of hanging.
//
// Locking discipline: the pool-wide guard is only taken on the
// allocate/destroy path, and always before a slot's guard. Acquire and Release
// only ever touch the slot's own guard and atomic fields, so traffic on one
// lock never blocks allocation or destruction of another.
package pool

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/quay/lockcore"
)

// DefaultCapacity is the number of slots in a Pool constructed without
// [WithCapacity]. It is enough for a 16-participant tournament tree.
const DefaultCapacity = 16

// Pool is a fixed-capacity table of Peterson lock slots.
//
// The zero Pool is not usable; use [New]. A Pool must not be copied after
// construction.
type Pool struct {
	// Mu is the pool-wide guard for the allocate/destroy path.
	mu    sync.Mutex
	slots []slot
	yield Yielder

	creates   atomic.Int64
	destroys  atomic.Int64
	acquires  atomic.Int64
	yields    atomic.Int64
	abandoned atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithCapacity sets the number of slots in the Pool. Values less than one
// are ignored.
func WithCapacity(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.slots = make([]slot, n)
		}
	}
}

// WithYield sets the function called by a waiter in [Pool.Acquire] to give up
// its turn of execution. The default is [Gosched].
func WithYield(y Yielder) Option {
	return func(p *Pool) {
		if y != nil {
			p.yield = y
		}
	}
}

// New constructs a Pool with every slot inactive.
func New(opts ...Option) *Pool {
	p := &Pool{
		slots: make([]slot, DefaultCapacity),
		yield: Gosched,
	}
	for _, f := range opts {
		f(p)
	}
	return p
}

// Capacity reports the number of slots in the Pool.
func (p *Pool) Capacity() int {
	return len(p.slots)
}

// Create allocates the first inactive slot and returns its handle.
//
// The returned error is of kind [lockcore.ErrNoFreeSlots] if every slot is
// active.
func (p *Pool) Create(ctx context.Context) (lockcore.Handle, error) {
	const op = `pool.Create`
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	p.mu.Lock()
	h, ok := p.alloc()
	p.mu.Unlock()

	if !ok {
		createCounter.Add(ctx, 1, metric.WithAttributeSet(failAttrs))
		err := &lockcore.Error{
			Kind:    lockcore.ErrNoFreeSlots,
			Op:      op,
			Message: "all " + strconv.Itoa(len(p.slots)) + " slots active",
		}
		span.RecordError(err)
		return -1, err
	}
	p.creates.Add(1)
	createCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
	span.SetAttributes(handleKey.Int(int(h)))
	return h, nil
}

// Alloc scans for an inactive slot. It must be called with the pool guard
// held.
func (p *Pool) alloc() (lockcore.Handle, bool) {
	for i := range p.slots {
		s := &p.slots[i]
		s.mu.Lock()
		if !s.active.Load() {
			s.activate()
			s.mu.Unlock()
			return lockcore.Handle(i), true
		}
		s.mu.Unlock()
	}
	return -1, false
}

// Destroy deactivates the slot named by the handle.
//
// The returned error is of kind [lockcore.ErrInvalidHandle] if the handle is
// out of range, or [lockcore.ErrAlreadyInactive] if the slot is not
// allocated. A goroutine waiting in [Pool.Acquire] on the handle observes the
// destruction at its next check and returns.
func (p *Pool) Destroy(ctx context.Context, h lockcore.Handle) error {
	const op = `pool.Destroy`
	ctx, span := tracer.Start(ctx, "Destroy", trace.WithAttributes(handleKey.Int(int(h))))
	defer span.End()

	if !p.inRange(h) {
		destroyCounter.Add(ctx, 1, metric.WithAttributeSet(failAttrs))
		err := &lockcore.Error{
			Kind:    lockcore.ErrInvalidHandle,
			Op:      op,
			Message: fmt.Sprintf("%v out of range [0, %d)", h, len(p.slots)),
		}
		span.RecordError(err)
		return err
	}

	s := &p.slots[h]
	p.mu.Lock()
	s.mu.Lock()
	wasActive := s.active.Load()
	if wasActive {
		s.deactivate()
	}
	s.mu.Unlock()
	p.mu.Unlock()

	if !wasActive {
		destroyCounter.Add(ctx, 1, metric.WithAttributeSet(failAttrs))
		err := &lockcore.Error{
			Kind:    lockcore.ErrAlreadyInactive,
			Op:      op,
			Message: h.String(),
		}
		span.RecordError(err)
		return err
	}
	p.destroys.Add(1)
	destroyCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
	return nil
}

func (p *Pool) inRange(h lockcore.Handle) bool {
	return h >= 0 && int(h) < len(p.slots)
}

// Free reports the number of inactive slots.
//
// The value may be stale by the time it's returned if other goroutines are
// creating or destroying locks.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.slots {
		if !p.slots[i].active.Load() {
			n++
		}
	}
	return n
}

// Snapshot is a consistent view of one slot.
type Snapshot struct {
	Active     bool
	Interest   [2]bool
	Turn       lockcore.Role
	Generation uint64
}

// Inspect returns a Snapshot of the slot named by the handle, taken under the
// slot's guard.
//
// The returned error is of kind [lockcore.ErrInvalidArgument] if the handle
// is out of range.
func (p *Pool) Inspect(h lockcore.Handle) (Snapshot, error) {
	if !p.inRange(h) {
		return Snapshot{}, &lockcore.Error{
			Kind:    lockcore.ErrInvalidArgument,
			Op:      `pool.Inspect`,
			Message: fmt.Sprintf("%v out of range [0, %d)", h, len(p.slots)),
		}
	}
	s := &p.slots[h]
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Active:     s.active.Load(),
		Interest:   [2]bool{s.interest[0].Load(), s.interest[1].Load()},
		Turn:       lockcore.Role(s.turn.Load()),
		Generation: s.gen.Load(),
	}, nil
}

// Stat is a point-in-time summary of Pool usage.
type Stat struct {
	// Capacity is the total number of slots.
	Capacity int
	// Active is the number of allocated slots.
	Active int
	// Creates is the cumulative count of successful Create calls.
	Creates int64
	// Destroys is the cumulative count of successful Destroy calls.
	Destroys int64
	// Acquires is the cumulative count of successful Acquire calls.
	Acquires int64
	// Yields is the cumulative count of yields performed by waiters.
	Yields int64
	// Abandoned is the cumulative count of Acquire calls that returned
	// because the lock was destroyed while waiting.
	Abandoned int64
}

// Stat reports a summary of Pool usage.
func (p *Pool) Stat() Stat {
	free := p.Free()
	return Stat{
		Capacity:  len(p.slots),
		Active:    len(p.slots) - free,
		Creates:   p.creates.Load(),
		Destroys:  p.destroys.Load(),
		Acquires:  p.acquires.Load(),
		Yields:    p.yields.Load(),
		Abandoned: p.abandoned.Load(),
	}
}

var handleKey = attribute.Key("lock.handle")
