// Package retryutil adapts github.com/sapcc/go-bits/retry's
// ExponentialBackoff (Factor, MaxInterval) to the two retry shapes the
// control loops need: an unbounded retry for indexer-agent/graph-node calls,
// which should keep trying until the context is cancelled, and a
// bounded-attempts-and-elapsed-time retry for queriesPerSecond, which must
// eventually give up and let the bandit loop move on to its next cycle.
//
// retry.Strategy.RetryUntilSuccessful(func() error) retries forever and has
// no notion of a context or a give-up condition, so it is used as-is for the
// unbounded case (Forever below) and reimplemented here, keyed off the same
// ExponentialBackoff fields, for the bounded case (Bounded below).
package retryutil

import (
	"context"
	"errors"
	"time"

	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/retry"
)

// Forever retries action with eb's exponential backoff until it succeeds or
// ctx is done. Since retry.Strategy has no cancellation hook, ctx is checked
// between attempts rather than inside RetryUntilSuccessful itself.
func Forever(ctx context.Context, eb retry.ExponentialBackoff, action func() error) error {
	var lastErr error
	wrapped := func() error {
		if ctx.Err() != nil {
			return nil // stop retrying; ctx.Err() is surfaced below
		}
		lastErr = action()
		return lastErr
	}
	eb.RetryUntilSuccessful(wrapped)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// ErrGaveUp is wrapped by Bounded when maxAttempts or maxElapsed is reached
// without a successful call.
var ErrGaveUp = errors.New("retryutil: gave up retrying")

// Bounded retries action with eb's exponential backoff (same Factor and
// MaxInterval semantics as retry.ExponentialBackoff, starting at one
// second) up to maxAttempts times or until maxElapsed has passed, whichever
// comes first. It returns the last observed error, wrapped in ErrGaveUp, if
// no attempt succeeds.
func Bounded(ctx context.Context, eb retry.ExponentialBackoff, maxAttempts int, maxElapsed time.Duration, action func() error) error {
	start := time.Now()
	interval := time.Second
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = action()
		if lastErr == nil {
			return nil
		}
		logg.Error("retryutil: attempt %d/%d failed: %s", attempt, maxAttempts, lastErr.Error())

		if attempt == maxAttempts {
			break
		}
		if time.Since(start) >= maxElapsed {
			break
		}

		interval *= time.Duration(eb.Factor)
		if interval > eb.MaxInterval {
			interval = eb.MaxInterval
		}
		remaining := maxElapsed - time.Since(start)
		if remaining <= 0 {
			break
		}
		if interval > remaining {
			interval = remaining
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return errors.Join(ErrGaveUp, lastErr)
}
