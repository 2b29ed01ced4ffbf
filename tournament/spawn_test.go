package tournament_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"

	"github.com/quay/lockcore"
	"github.com/quay/lockcore/pool"
	"github.com/quay/lockcore/test"
	mock_tournament "github.com/quay/lockcore/test/mock/tournament"
	"github.com/quay/lockcore/tournament"
)

func noop(context.Context, *tournament.Participant) error { return nil }

func TestSpawnOrder(t *testing.T) {
	ctx := test.Logging(t)
	ctl := gomock.NewController(t)
	s := mock_tournament.NewMockSpawner(ctl)
	pl := pool.New()

	var ids []int
	var cfgs []*tournament.Config
	s.EXPECT().
		Spawn(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *tournament.Participant, _ tournament.Body) error {
			ids = append(ids, p.ID())
			cfgs = append(cfgs, p.Config())
			return nil
		}).
		Times(7)

	self, err := tournament.Create(ctx, pl, 8, s, noop)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := self.ID(), 0; got != want {
		t.Errorf("got: participant %d, want: %d", got, want)
	}
	if got, want := ids, []int{1, 2, 3, 4, 5, 6, 7}; !cmp.Equal(got, want) {
		t.Error(cmp.Diff(want, got))
	}
	for _, c := range cfgs {
		if c != self.Config() {
			t.Errorf("participant config %p not shared with %p", c, self.Config())
		}
	}
	if got, want := self.Config().Participants(), 8; got != want {
		t.Errorf("got: %d participants, want: %d", got, want)
	}
	if got, want := self.Config().Levels(), 3; got != want {
		t.Errorf("got: %d levels, want: %d", got, want)
	}
	if got, want := len(self.Config().Locks()), 7; got != want {
		t.Errorf("got: %d locks, want: %d", got, want)
	}
	if err := tournament.Destroy(ctx, pl, self.Config()); err != nil {
		t.Error(err)
	}
}

func TestSpawnFailure(t *testing.T) {
	ctx := test.Logging(t)
	ctl := gomock.NewController(t)
	s := mock_tournament.NewMockSpawner(ctl)
	pl := pool.New()
	boom := errors.New("boom")
	gomock.InOrder(
		s.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		s.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).Return(boom),
	)

	_, err := tournament.Create(ctx, pl, 4, s, noop)
	t.Log(err)
	if !errors.Is(err, lockcore.ErrSpawnFailure) {
		t.Errorf("got: %v, want: %v", err, lockcore.ErrSpawnFailure)
	}
	if !errors.Is(err, boom) {
		t.Errorf("got: %v, want: %v", err, boom)
	}
	// The tree was built before spawning started and is not reclaimed.
	if got, want := pl.Free(), pool.DefaultCapacity-3; got != want {
		t.Errorf("got: %d free slots, want: %d", got, want)
	}
}

func TestGroupLimit(t *testing.T) {
	ctx := test.Logging(t)
	pl := pool.New()
	g := tournament.NewGroup(ctx, 2)
	hold := make(chan struct{})
	_, err := tournament.Create(ctx, pl, 4, g, func(ctx context.Context, _ *tournament.Participant) error {
		<-hold
		return nil
	})
	t.Log(err)
	if !errors.Is(err, lockcore.ErrSpawnFailure) {
		t.Errorf("got: %v, want: %v", err, lockcore.ErrSpawnFailure)
	}
	close(hold)
	if err := g.Wait(); err != nil {
		t.Error(err)
	}
}

func TestGroupCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Logging(t))
	cancel()
	pl := pool.New()
	_, err := tournament.Create(ctx, pl, 2, tournament.NewGroup(ctx, 0), noop)
	t.Log(err)
	if !errors.Is(err, lockcore.ErrSpawnFailure) {
		t.Errorf("got: %v, want: %v", err, lockcore.ErrSpawnFailure)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got: %v, want: %v", err, context.Canceled)
	}
}
