package resilience

import (
	"context"
	"errors"
)

// retryable is implemented by errors that know whether another try can help,
// such as driver.Error.
type retryable interface {
	Retryable() bool
}

// Retryable is the default retry check of a Tier. An error's own Retryable
// verdict wins, so a per-call timeout classified by the driver stays
// retryable. Bare context errors are final. Anything else is worth another
// try.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
