package driver

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a driver failure.
type Kind string

const (
	KindElementNotFound Kind = "element_not_found"
	KindActionTimeout   Kind = "action_timeout"
	KindNavigation      Kind = "navigation"
	KindStaleContext    Kind = "stale_context"
	KindUnauthenticated Kind = "unauthenticated"
	KindUnknown         Kind = "unknown"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrActionTimeout   = errors.New("action timed out")
	ErrNavigation      = errors.New("navigation failed")
	ErrStaleContext    = errors.New("context no longer resolvable")
	ErrUnauthenticated = errors.New("session is not authenticated")
)

var sentinels = map[Kind]error{
	KindElementNotFound: ErrElementNotFound,
	KindActionTimeout:   ErrActionTimeout,
	KindNavigation:      ErrNavigation,
	KindStaleContext:    ErrStaleContext,
	KindUnauthenticated: ErrUnauthenticated,
}

// Error is a classified driver failure.
type Error struct {
	Kind    Kind
	Op      string
	Locator Locator
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}
	where := e.Op
	if e.Locator != "" {
		where = fmt.Sprintf("%s %q", e.Op, e.Locator)
	}
	if e.Err != nil && !errors.Is(e.Err, sentinels[e.Kind]) {
		return fmt.Sprintf("%s: %s: %v", where, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && target == s
}

// Retryable reports whether trying again could help. Only an
// unauthenticated session is hopeless within an attempt.
func (e *Error) Retryable() bool {
	return e.Kind != KindUnauthenticated
}

// NewError builds a classified error.
func NewError(kind Kind, op string, loc Locator, err error) *Error {
	if err == nil {
		err = sentinels[kind]
	}
	return &Error{Kind: kind, Op: op, Locator: loc, Err: err}
}

// KindOf returns the kind of a classified error, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for kind, s := range sentinels {
		if errors.Is(err, s) {
			return kind
		}
	}
	return KindUnknown
}

// Classify converts a raw implementation error into an *Error. It is applied
// once, where calls leave the driver, so nothing downstream inspects error
// text. parent is the caller's context: when it is done, the raw context
// error is returned unchanged so cancellation is never mistaken for a
// timeout.
func Classify(parent context.Context, op string, loc Locator, err error) error {
	if err == nil {
		return nil
	}
	if parent != nil && parent.Err() != nil && errors.Is(err, parent.Err()) {
		return err
	}

	var de *Error
	if errors.As(err, &de) {
		return err
	}

	for kind, s := range sentinels {
		if errors.Is(err, s) {
			return &Error{Kind: kind, Op: op, Locator: loc, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		switch op {
		case OpNavigate, OpReload:
			return &Error{Kind: KindNavigation, Op: op, Locator: loc, Err: err}
		case OpWait:
			return &Error{Kind: KindElementNotFound, Op: op, Locator: loc, Err: err}
		default:
			return &Error{Kind: KindActionTimeout, Op: op, Locator: loc, Err: err}
		}
	}

	switch op {
	case OpNavigate, OpReload:
		return &Error{Kind: KindNavigation, Op: op, Locator: loc, Err: err}
	}
	return &Error{Kind: KindUnknown, Op: op, Locator: loc, Err: err}
}

// Operation names used in errors, metrics and spans.
const (
	OpNavigate = "navigate"
	OpWait     = "wait"
	OpClick    = "click"
	OpProbe    = "probe"
	OpNested   = "nested"
	OpText     = "text"
	OpReload   = "reload"
	OpLocation = "location"
)
