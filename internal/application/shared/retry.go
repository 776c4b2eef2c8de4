package shared

import (
	"context"
	"errors"
	"time"

	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// RetryPolicy bounds retries of optimistic-lock conflicts
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy allows 5 attempts starting at 100ms, doubling
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Backoff: 100 * time.Millisecond}
}

// RetryOnConflict runs fn until it succeeds, returns an error other than
// OPTIMISTIC_LOCK_FAILED, or the attempts run out. The wait doubles after
// each conflict. fn receives the 1-based attempt number.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	backoff := policy.Backoff
	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err = fn(attempt)
		if err == nil || !errors.Is(err, shared.ErrOptimisticLock) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return shared.NewDomainError("CONCURRENCY_CONFLICT", "Too many concurrent updates, please retry").WithCause(err)
}
