package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/quay/lockcore/tournament"
)

// Run is the "run" subcommand.
func Run(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	n := fs.Int("n", 4, "number of participants: a power of two between 1 and 16")
	rounds := fs.Int("rounds", 1, "number of times each participant enters the critical section")
	hold := fs.Duration("hold", 0, "time to stay in the critical section")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, ok := tournament.LevelsFor(*n); !ok {
		return fmt.Errorf("run: %d participants: must be a power of two between 1 and %d", *n, tournament.MaxParticipants)
	}

	var mu sync.Mutex // Serializes writes; the tree is what's being shown.
	out := io.Writer(os.Stdout)
	body := func(ctx context.Context, p *tournament.Participant) error {
		for i := 0; i < *rounds; i++ {
			if err := p.Acquire(ctx); err != nil {
				return err
			}
			mu.Lock()
			fmt.Fprintf(out, "participant %d of tournament %v has acquired the lock and is in the critical section\n",
				p.ID(), p.Config().ID())
			mu.Unlock()
			if *hold > 0 {
				time.Sleep(*hold)
			}
			if err := p.Release(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	return tournament.Run(ctx, cfg.Pool, *n, body)
}
