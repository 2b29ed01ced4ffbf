package tournament

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Body is the work a participant does once started. It is handed the
// participant it runs as, and is expected to call [Participant.Acquire] and
// [Participant.Release] around its critical sections.
type Body func(ctx context.Context, p *Participant) error

// Spawner starts participants concurrently with the caller.
//
// Spawn must arrange for "body" to be called with "p" on a new goroutine and
// return without waiting for it. A returned error means the participant was
// not started.
type Spawner interface {
	Spawn(ctx context.Context, p *Participant, body Body) error
}

var _ Spawner = (*Group)(nil)

// Group is a Spawner that runs participants in an [errgroup.Group].
//
// The Context handed to each Body is derived from the one passed to
// [NewGroup] and is canceled when any Body returns an error.
type Group struct {
	eg  *errgroup.Group
	ctx context.Context
}

// NewGroup returns a Group that runs at most "limit" participants at once.
// A limit less than 1 means no limit.
func NewGroup(ctx context.Context, limit int) *Group {
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	return &Group{eg: eg, ctx: ctx}
}

// Spawn implements [Spawner]. It reports an error instead of blocking if the
// Group is at its limit.
//
// Values carried by "ctx" are not propagated; the Body sees the Group's
// Context.
func (g *Group) Spawn(ctx context.Context, p *Participant, body Body) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	ok := g.eg.TryGo(func() error {
		if err := body(g.ctx, p); err != nil {
			return fmt.Errorf("participant %d: %w", p.ID(), err)
		}
		return nil
	})
	if !ok {
		return fmt.Errorf("participant %d: group at limit", p.ID())
	}
	return nil
}

// Wait blocks until every spawned participant has returned, then reports the
// first error.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
