package queue

import (
	"context"
	"errors"
	"fmt"

	"distq/internal/tree"
)

// RetryPolicy retries operations that failed with tree.ErrConflict.
type RetryPolicy struct {
	// Attempts is the total number of tries, first one included.
	Attempts int
}

// singleRetryPolicy allows exactly one retry after a conflict. Deletes and
// queue root creation use it.
var singleRetryPolicy = RetryPolicy{Attempts: 2}

// Do runs op until it succeeds, fails with something other than a conflict,
// or the attempts run out. recoverFn, when set, runs before every retry.
// The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, op func(attempt int) error, recoverFn func() error) error {
	attempts := max(p.Attempts, 1)
	var err error
	for attempt := range attempts {
		if attempt > 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if recoverFn != nil {
				if rerr := recoverFn(); rerr != nil {
					return fmt.Errorf("recover before attempt %d: %w", attempt+1, rerr)
				}
			}
		}
		err = op(attempt)
		if err == nil || !errors.Is(err, tree.ErrConflict) {
			return err
		}
	}
	return err
}
