package tournament

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/quay/lockcore"
	"github.com/quay/lockcore/pool"
	"github.com/quay/lockcore/toolkit/log"
)

// State is a participant's position in the acquire/release cycle.
type State int

//go:generate go run golang.org/x/tools/cmd/stringer -type=State

// Participant states.
//
// A participant moves Idle → Acquiring → Holding → Releasing → Idle. Any
// failure moves it to Failed, which is terminal.
const (
	Idle State = iota
	Acquiring
	Holding
	Releasing
	Failed
)

// Participant is one member of a tournament.
//
// A Participant is owned by the goroutine it was handed to and is not safe
// for concurrent use.
type Participant struct {
	cfg   *Config
	pool  *pool.Pool
	self  int
	steps []Step
	state State
}

func newParticipant(cfg *Config, pl *pool.Pool, self int) *Participant {
	steps := path(self, cfg.levels)
	for i := range steps {
		if idx := steps[i].Index; idx >= 0 && idx < len(cfg.locks) {
			steps[i].Handle = cfg.locks[idx]
		} else {
			steps[i].Handle = -1
		}
	}
	return &Participant{
		cfg:   cfg,
		pool:  pl,
		self:  self,
		steps: steps,
	}
}

// ID is the participant's ordinal, in [0, Participants).
func (p *Participant) ID() int { return p.self }

// Config returns the tournament's shared configuration.
func (p *Participant) Config() *Config { return p.cfg }

// State reports the participant's current state.
func (p *Participant) State() State { return p.state }

// Path returns the locks the participant takes in [Participant.Acquire], in
// order: leaf level first, root last.
func (p *Participant) Path() []Step { return slices.Clone(p.steps) }

// ReleasePath returns the locks the participant gives up in
// [Participant.Release], in order: root first. It is the reverse of
// [Participant.Path].
func (p *Participant) ReleasePath() []Step {
	out := slices.Clone(p.steps)
	slices.Reverse(out)
	return out
}

// LogContext returns a Context carrying the participant's identity for
// logging.
func (p *Participant) logContext(ctx context.Context) context.Context {
	return log.With(ctx, "tournament", p.cfg.id.String(), "participant", p.self)
}

// Acquire climbs the tree from the participant's leaf-level lock to the root.
// On success the participant is the only one of the tournament holding the
// tree.
//
// With a single participant this always succeeds, whatever the current
// state. Otherwise the returned error is of kind [lockcore.ErrAcquireFailed]
// and wraps the lock error that stopped the climb. Locks taken before the
// failure are not released, and the participant is left in the Failed state.
func (p *Participant) Acquire(ctx context.Context) error {
	const op = `tournament.Acquire`
	ctx, span := tracer.Start(ctx, "Acquire", p.spanAttrs())
	defer span.End()

	if p.cfg.n == 1 {
		p.state = Holding
		acquireCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
		return nil
	}
	if p.state != Idle {
		err := &lockcore.Error{
			Kind:    lockcore.ErrAcquireFailed,
			Op:      op,
			Message: fmt.Sprintf("participant %d is %v, not %v", p.self, p.state, Idle),
		}
		return p.failed(ctx, span, acquireCounter, err, false)
	}
	p.state = Acquiring
	for _, st := range p.steps {
		if err := p.checkStep(st); err != nil {
			return p.failed(ctx, span, acquireCounter, &lockcore.Error{
				Inner:   err,
				Kind:    lockcore.ErrAcquireFailed,
				Op:      op,
				Message: fmt.Sprintf("participant %d level %d", p.self, st.Level),
			}, true)
		}
		if err := p.pool.Acquire(st.Handle, st.Role); err != nil {
			return p.failed(ctx, span, acquireCounter, &lockcore.Error{
				Inner:   err,
				Kind:    lockcore.ErrAcquireFailed,
				Op:      op,
				Message: fmt.Sprintf("participant %d level %d", p.self, st.Level),
			}, true)
		}
	}
	p.state = Holding
	acquireCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
	slog.DebugContext(ctx, "tree acquired", "tournament", p.cfg.id.String(), "participant", p.self)
	return nil
}

// Release walks the tree from the root back down to the participant's
// leaf-level lock, the exact reverse of [Participant.Acquire].
//
// With a single participant this always succeeds, whatever the current
// state. Otherwise the returned error is of kind [lockcore.ErrReleaseFailed]
// and wraps the lock error that stopped the walk. Remaining levels are not
// attempted, and the participant is left in the Failed state.
func (p *Participant) Release(ctx context.Context) error {
	const op = `tournament.Release`
	ctx, span := tracer.Start(ctx, "Release", p.spanAttrs())
	defer span.End()

	if p.cfg.n == 1 {
		p.state = Idle
		releaseCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
		return nil
	}
	if p.state != Holding {
		err := &lockcore.Error{
			Kind:    lockcore.ErrReleaseFailed,
			Op:      op,
			Message: fmt.Sprintf("participant %d is %v, not %v", p.self, p.state, Holding),
		}
		return p.failed(ctx, span, releaseCounter, err, false)
	}
	p.state = Releasing
	for i := len(p.steps) - 1; i >= 0; i-- {
		st := p.steps[i]
		if err := p.checkStep(st); err != nil {
			return p.failed(ctx, span, releaseCounter, &lockcore.Error{
				Inner:   err,
				Kind:    lockcore.ErrReleaseFailed,
				Op:      op,
				Message: fmt.Sprintf("participant %d level %d", p.self, st.Level),
			}, true)
		}
		if err := p.checkLive(st); err != nil {
			return p.failed(ctx, span, releaseCounter, &lockcore.Error{
				Inner:   err,
				Kind:    lockcore.ErrReleaseFailed,
				Op:      op,
				Message: fmt.Sprintf("participant %d level %d", p.self, st.Level),
			}, true)
		}
		if err := p.pool.Release(st.Handle, st.Role); err != nil {
			return p.failed(ctx, span, releaseCounter, &lockcore.Error{
				Inner:   err,
				Kind:    lockcore.ErrReleaseFailed,
				Op:      op,
				Message: fmt.Sprintf("participant %d level %d", p.self, st.Level),
			}, true)
		}
	}
	p.state = Idle
	releaseCounter.Add(ctx, 1, metric.WithAttributeSet(okAttrs))
	slog.DebugContext(ctx, "tree released", "tournament", p.cfg.id.String(), "participant", p.self)
	return nil
}

// CheckStep reports an internal error if a computed lock index falls outside
// the tree. This can only happen if the bookkeeping is wrong.
func (p *Participant) checkStep(st Step) error {
	if st.Index < 0 || st.Index >= len(p.cfg.locks) {
		return &lockcore.Error{
			Kind:    lockcore.ErrInternal,
			Op:      `tournament.checkStep`,
			Message: fmt.Sprintf("lock index %d out of bounds [0, %d)", st.Index, len(p.cfg.locks)),
		}
	}
	return nil
}

// CheckLive reports an error if the lock for a step was destroyed, or
// destroyed and handed out again, since the tree was built. Releasing such a
// lock would clear another owner's interest.
func (p *Participant) checkLive(st Step) error {
	snap, err := p.pool.Inspect(st.Handle)
	if err != nil {
		return err
	}
	if !snap.Active || snap.Generation != p.cfg.gens[st.Index] {
		return &lockcore.Error{
			Kind:    lockcore.ErrLockInactive,
			Op:      `tournament.checkLive`,
			Message: fmt.Sprintf("%v no longer belongs to the tree", st.Handle),
		}
	}
	return nil
}

// Failed records a failed traversal. If "terminal" is set, the participant
// moves to the Failed state.
func (p *Participant) failed(ctx context.Context, span trace.Span, c metric.Int64Counter, err error, terminal bool) error {
	if terminal {
		p.state = Failed
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "traversal failed")
	c.Add(ctx, 1, metric.WithAttributeSet(failAttrs))
	slog.WarnContext(ctx, "traversal failed",
		"tournament", p.cfg.id.String(),
		"participant", p.self,
		"state", p.state.String(),
		"reason", err)
	return err
}

func (p *Participant) spanAttrs() trace.SpanStartOption {
	return trace.WithAttributes(
		tournamentKey.String(p.cfg.id.String()),
		participantKey.Int(p.self),
	)
}
