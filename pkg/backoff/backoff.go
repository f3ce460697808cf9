// Package backoff computes wait durations between request attempts and
// provides a context-aware sleep used for every delay in the client.
package backoff

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Range bounds a single wait duration.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Fixed returns a Range that always resolves to d.
func Fixed(d time.Duration) Range {
	return Range{Min: d, Max: d}
}

// Validate checks the range invariants: both bounds non-negative and
// Min <= Max.
func (r Range) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("backoff: negative bound (min %v, max %v)", r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("backoff: min %v exceeds max %v", r.Min, r.Max)
	}
	return nil
}

// Options describe one delay resolution.
type Options struct {
	Range

	// Increment raises the effective minimum as attempts progress,
	// producing later average waits without true exponential growth.
	// Retry delays set it; redirect and pagination delays do not.
	Increment bool

	// Attempt is the current attempt number (1-based) and Attempts the
	// configured maximum. Both are consulted only when Increment is set.
	Attempt  int
	Attempts int
}

// Resolve computes a concrete wait duration for one attempt.
//
// A collapsed range (Min == Max) resolves to that constant with no
// randomness. Otherwise the result is uniformly distributed in
// [lower, Max), where lower is Min widened toward Max by
// Attempt/Attempts when Increment is set.
func Resolve(opts Options) (time.Duration, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	if opts.Min == opts.Max {
		return opts.Min, nil
	}

	lower := opts.Min
	if opts.Increment && opts.Attempts > 0 {
		widened := opts.Min + time.Duration(int64(opts.Max-opts.Min)*int64(opts.Attempt)/int64(opts.Attempts))
		if widened > lower {
			lower = widened
		}
	}
	if lower >= opts.Max {
		return opts.Max, nil
	}

	return lower + time.Duration(rand.Int63n(int64(opts.Max-lower))), nil
}

// Wait sleeps for d or returns the context error as soon as ctx is
// cancelled. A zero or negative duration returns immediately, still
// honoring an already-cancelled context.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
