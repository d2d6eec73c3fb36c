package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

/*
BOUNDED RETRY TIERS

A Tier describes one level of the escalation ladder: how many tries it gets
(Ceiling), how long to wait between them (Backoff), and which errors are worth
another try (ShouldRetry). The same helper drives every tier: a single
sub-action click, the attempt entry sequence, and the process-level restart
loop. What happens after a tier is exhausted is decided by the caller, which
receives an *ExhaustedError.

## Retryable errors

Without ShouldRetry a tier uses Retryable: every error gets another try
unless it is a context error or implements Retryable() bool and says no.

## Waiting

Wait defaults to a timer raced against ctx. Callers that need the wait to end
early for reasons other than ctx (a restart flag, for instance) supply their
own Wait; any error it returns ends the tier immediately.
*/

// AttemptFunc is one try within a tier. attempt is 1-based.
type AttemptFunc func(ctx context.Context, attempt int) error

// RetryCallback is called after a failed try that will be retried.
type RetryCallback func(attempt int, err error, nextDelay time.Duration)

// Tier is a bounded-retry descriptor.
type Tier struct {
	// Name identifies the tier in logs and errors.
	Name string

	// Ceiling is the total number of tries (values below 1 mean 1).
	Ceiling int

	// Backoff controls the delay between tries.
	Backoff Backoff

	// ShouldRetry optionally overrides the default transient check.
	ShouldRetry func(error) bool

	// Wait optionally replaces the default timer wait.
	Wait func(ctx context.Context, d time.Duration) error
}

// ExhaustedError is returned when every try in a tier failed.
type ExhaustedError struct {
	Tier     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exhausted after %d attempt(s): %v", e.Tier, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err came from a tier running out of tries.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// Run executes fn until it succeeds, returns a non-retryable error, or the
// ceiling is reached.
func (t Tier) Run(ctx context.Context, fn AttemptFunc, callback RetryCallback) error {
	ceiling := t.Ceiling
	if ceiling < 1 {
		ceiling = 1
	}
	shouldRetry := t.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = Retryable
	}
	wait := t.Wait
	if wait == nil {
		wait = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= ceiling; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
		if attempt >= ceiling {
			break
		}

		delay := t.Backoff.Delay(attempt - 1)
		if callback != nil {
			callback(attempt, err, delay)
		}
		if err := wait(ctx, delay); err != nil {
			return err
		}
	}

	return &ExhaustedError{Tier: t.Name, Attempts: ceiling, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
