// Package fallback implements an ordered-fallback policy: try a fixed
// sequence of interchangeable operations, each under its own timeout, and
// return the first success. Used by the geodata adapters, whose upstreams
// are equivalent mirrors of each other.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Attempt is one operation in an ordered fallback sequence.
type Attempt[T any] func(ctx context.Context) (T, error)

// First runs attempts in order, each bounded by perAttemptTimeout, and
// returns the first successful result; later attempts are not tried after a
// success. When every attempt fails the per-attempt errors are aggregated
// into one.
//
// Mirror ordering is deliberately fixed rather than round-robin or
// health-biased: the first configured endpoint is always preferred.
func First[T any](ctx context.Context, perAttemptTimeout time.Duration, attempts []Attempt[T]) (T, error) {
	var zero T
	if len(attempts) == 0 {
		return zero, errors.New("fallback: no attempts configured")
	}

	var errs []error
	for i, attempt := range attempts {
		attemptCtx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
		v, err := attempt(attemptCtx)
		cancel()
		if err == nil {
			return v, nil
		}
		errs = append(errs, fmt.Errorf("attempt %d: %w", i+1, err))

		// The parent context being done means nothing further can succeed.
		if ctx.Err() != nil {
			break
		}
	}
	return zero, errors.Join(errs...)
}
