// Package tournament composes two-party Peterson locks into mutual exclusion
// for up to [MaxParticipants] participants.
//
// The locks form a complete binary tree stored in breadth-first order: index
// 0 is the root, and level l (root at 0) occupies indexes [2^l-1, 2^(l+1)-1).
// Each participant starts at a leaf-level lock determined by its ID and climbs
// to the root, taking each lock with the role given by one bit of its ID. A
// participant holding the root lock is the only one in the critical section.
// Release walks the same path in reverse, root first.
//
// Failures are not rolled back. If allocation fails partway through
// [Create], the locks already allocated stay allocated. If a lock operation
// fails partway through [Participant.Acquire] or [Participant.Release], the
// locks already taken stay taken and the participant moves to [Failed]. The
// expected recovery is to stop using the tree.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/quay/lockcore"
	"github.com/quay/lockcore/pool"
	"github.com/quay/lockcore/toolkit/log"
)

// MaxParticipants is the largest supported tournament.
const MaxParticipants = 16

// Config is the immutable description of one tournament, shared by all of its
// participants.
type Config struct {
	id     uuid.UUID
	n      int
	levels int
	// Locks is in breadth-first order and never modified after Create.
	locks []lockcore.Handle
	// Gens holds the pool generation of each lock when it was allocated.
	gens []uint64
}

// ID is a unique identifier for the tournament, used in logs and traces.
func (c *Config) ID() uuid.UUID { return c.id }

// Participants is the number of participants, a power of two.
func (c *Config) Participants() int { return c.n }

// Levels is log2(Participants): the number of locks on each participant's
// path.
func (c *Config) Levels() int { return c.levels }

// Locks returns a copy of the tree's lock handles in breadth-first order.
func (c *Config) Locks() []lockcore.Handle { return slices.Clone(c.locks) }

// LevelsFor reports log2(n) if n is a power of two in [1, MaxParticipants].
func LevelsFor(n int) (int, bool) {
	if n < 1 || n > MaxParticipants || n&(n-1) != 0 {
		return 0, false
	}
	return bits.TrailingZeros(uint(n)), true
}

// Create builds a tournament tree of n-1 locks from the pool and starts n-1
// additional participants with the Spawner, each running "body". The calling
// goroutine becomes participant 0, which is returned.
//
// The returned error is of kind:
//
//   - [lockcore.ErrInvalidParticipantCount] if n is not a power of two in [1, 16];
//     no locks are allocated
//   - [lockcore.ErrNoFreeSlots] if the pool ran out of slots; locks allocated
//     before the failure are not released
//   - [lockcore.ErrSpawnFailure] if the Spawner failed; participants started
//     before the failure keep running
func Create(ctx context.Context, pl *pool.Pool, n int, s Spawner, body Body) (*Participant, error) {
	const op = `tournament.Create`
	if err := metricInit(); err != nil {
		return nil, &lockcore.Error{Inner: err, Kind: lockcore.ErrInternal, Op: op}
	}
	ctx, span := tracer.Start(ctx, "Create", trace.WithAttributes(participantsKey.Int(n)))
	defer span.End()
	fail := func(err error) (*Participant, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		createCounter.Add(ctx, 1, metric.WithAttributeSet(failAttrs))
		return nil, err
	}

	levels, ok := LevelsFor(n)
	if !ok {
		return fail(&lockcore.Error{
			Kind:    lockcore.ErrInvalidParticipantCount,
			Op:      op,
			Message: fmt.Sprintf("%d is not a power of two in [1, %d]", n, MaxParticipants),
		})
	}
	if n > 1 && (s == nil || body == nil) {
		return fail(&lockcore.Error{
			Kind:    lockcore.ErrSpawnFailure,
			Op:      op,
			Message: "a Spawner and Body are needed for more than one participant",
		})
	}
	cfg := &Config{
		id:     uuid.New(),
		n:      n,
		levels: levels,
		locks:  make([]lockcore.Handle, 0, n-1),
		gens:   make([]uint64, 0, n-1),
	}
	span.SetAttributes(tournamentKey.String(cfg.id.String()))
	ctx = log.With(ctx, "tournament", cfg.id.String())

	for i := 0; i < n-1; i++ {
		h, err := pl.Create(ctx)
		if err != nil {
			slog.WarnContext(ctx, "lock allocation failed, allocated locks not reclaimed",
				"allocated", cfg.locks,
				"reason", err)
			return fail(&lockcore.Error{
				Inner:   err,
				Kind:    lockcore.ErrNoFreeSlots,
				Op:      op,
				Message: fmt.Sprintf("lock %d of %d", i+1, n-1),
			})
		}
		snap, err := pl.Inspect(h)
		if err != nil {
			return fail(&lockcore.Error{Inner: err, Kind: lockcore.ErrInternal, Op: op})
		}
		cfg.locks = append(cfg.locks, h)
		cfg.gens = append(cfg.gens, snap.Generation)
	}
	slog.DebugContext(ctx, "tree allocated", "participants", n, "levels", levels, "locks", cfg.locks)

	self := newParticipant(cfg, pl, 0)
	run := func(ctx context.Context, p *Participant) error {
		return body(p.logContext(ctx), p)
	}
	for i := 1; i < n; i++ {
		p := newParticipant(cfg, pl, i)
		if err := s.Spawn(ctx, p, run); err != nil {
			slog.WarnContext(ctx, "spawn failed, started participants keep running",
				"started", i-1,
				"reason", err)
			return fail(&lockcore.Error{
				Inner:   err,
				Kind:    lockcore.ErrSpawnFailure,
				Op:      op,
				Message: fmt.Sprintf("participant %d", i),
			})
		}
	}
	createCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
	return self, nil
}

// Destroy returns every lock of the tournament to the pool.
//
// It must only be called once no participant is using the tree. All locks are
// attempted; the returned error joins any failures.
func Destroy(ctx context.Context, pl *pool.Pool, cfg *Config) error {
	ctx, span := tracer.Start(ctx, "Destroy", trace.WithAttributes(tournamentKey.String(cfg.id.String())))
	defer span.End()
	var errs []error
	for _, h := range cfg.locks {
		if err := pl.Destroy(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		err := errors.Join(errs...)
		span.RecordError(err)
		span.SetStatus(codes.Error, "destroy failed")
		return err
	}
	slog.DebugContext(ctx, "tree destroyed", "tournament", cfg.id.String(), "locks", cfg.locks)
	return nil
}
