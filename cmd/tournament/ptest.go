package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/quay/lockcore"
)

// PTest is the "ptest" subcommand. Two goroutines take turns on one lock, as
// roles 0 and 1, then the lock is destroyed.
func PTest(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("ptest", flag.ExitOnError)
	iter := fs.Int("iterations", 100, "number of critical section entries per role")
	every := fs.Duration("every", 10*time.Millisecond, "minimum interval between attempts by each role")
	hold := fs.Duration("hold", 0, "time to stay in the critical section")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p := cfg.Pool

	fmt.Println("starting lock test")
	h, err := p.Create(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created %v\n", h)

	// A waiting role only returns once it gets the lock or the lock goes away,
	// so a failure on one side destroys the lock to free the other.
	destroy := sync.OnceValue(func() error {
		fmt.Printf("destroying %v\n", h)
		return p.Destroy(context.WithoutCancel(ctx), h)
	})
	eg, ctx := errgroup.WithContext(ctx)
	for _, r := range []lockcore.Role{lockcore.Role0, lockcore.Role1} {
		lim := rate.NewLimiter(rate.Every(*every), 1)
		eg.Go(func() error {
			for i := 0; i < *iter; i++ {
				if err := lim.Wait(ctx); err != nil {
					destroy()
					return err
				}
				slog.DebugContext(ctx, "acquiring", "lock", h, "role", r)
				if err := p.Acquire(h, r); err != nil {
					destroy()
					return fmt.Errorf("role %d: %w", r, err)
				}
				fmt.Printf("role %d in critical section (iteration %d)\n", r, i)
				if *hold > 0 {
					time.Sleep(*hold)
				}
				slog.DebugContext(ctx, "releasing", "lock", h, "role", r)
				if err := p.Release(h, r); err != nil {
					destroy()
					return fmt.Errorf("role %d: %w", r, err)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		// The failing role already destroyed the lock.
		fmt.Fprintf(os.Stderr, "lock test failed: %v\n", err)
		return err
	}
	if err := destroy(); err != nil {
		return err
	}
	st := p.Stat()
	fmt.Printf("finished: %d acquisitions, %d yields\n", st.Acquires, st.Yields)
	return nil
}
