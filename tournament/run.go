package tournament

import (
	"context"
	"errors"

	"github.com/quay/lockcore/pool"
)

// Run builds a tournament of n participants, runs "body" as every one of
// them, and waits for all of them to return. Participant 0 runs on the
// calling goroutine.
//
// The tree is destroyed once every participant has returned. The returned
// error joins the errors of Create, the bodies, and Destroy.
func Run(ctx context.Context, pl *pool.Pool, n int, body Body) error {
	g := NewGroup(ctx, 0)
	self, err := Create(ctx, pl, n, g, body)
	if err != nil {
		// Participants started before a spawn failure still need collecting.
		return errors.Join(err, g.Wait())
	}
	errs := []error{body(self.logContext(g.ctx), self), g.Wait()}
	errs = append(errs, Destroy(ctx, pl, self.Config()))
	return errors.Join(errs...)
}
