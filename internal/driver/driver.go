// Package driver defines the capability surface the orchestration engine uses
// to interact with a remote interactive target, together with the typed error
// taxonomy every implementation reports through.
//
// The engine never talks to a browser directly. A Driver is one session
// against the target; a Factory hands out a fresh Driver per attempt.
package driver

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// Locator identifies an element on the target (a selector, an accessibility
// path, whatever the implementation understands).
type Locator string

// Point is a position relative to an element's top-left corner.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Element is an opaque handle to a located element.
type Element interface {
	Locator() Locator
}

// Target is what a click is aimed at: an already-located element or a
// locator to resolve at click time. Element wins when both are set.
type Target struct {
	Locator Locator
	Element Element
}

// ByLocator targets whatever loc resolves to at click time.
func ByLocator(loc Locator) Target { return Target{Locator: loc} }

// ByElement targets an element handle from an earlier lookup.
func ByElement(el Element) Target { return Target{Element: el} }

// Describe returns the locator a target refers to.
func (t Target) Describe() Locator {
	if t.Element != nil {
		return t.Element.Locator()
	}
	return t.Locator
}

// NestedContext is an execution context embedded in the page, such as a
// frame inside a frame. Lookups and clicks are scoped to it.
type NestedContext interface {
	Name() string
	Probe(ctx context.Context, loc Locator) (Element, bool, error)
	WaitForElement(ctx context.Context, loc Locator, timeout time.Duration, visible bool) (Element, error)
	Click(ctx context.Context, target Target, at *Point, timeout time.Duration) error
	ReadText(ctx context.Context, el Element) (string, error)
}

// Driver is one session against the target.
//
// Implementations must be safe for concurrent use: the stage sequencer and
// both watchdogs share a single Driver for the lifetime of an attempt. Every
// blocking call honours ctx and its own timeout; timeouts are per call.
type Driver interface {
	// Navigate loads url. Fails with ErrNavigation.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitForElement blocks until loc exists (and is visible, if asked).
	// Fails with ErrElementNotFound once timeout elapses.
	WaitForElement(ctx context.Context, loc Locator, timeout time.Duration, visible bool) (Element, error)

	// Click clicks target, optionally at a position inside it. Fails with
	// ErrActionTimeout.
	Click(ctx context.Context, target Target, at *Point, timeout time.Duration) error

	// Probe is a non-blocking existence check. A missing element is
	// (nil, false, nil), never an error.
	Probe(ctx context.Context, loc Locator) (Element, bool, error)

	// NestedContexts returns the execution contexts nested under host. The
	// sequence is lazy, finite and may only be ranged over once.
	NestedContexts(ctx context.Context, host Element) (iter.Seq[NestedContext], error)

	ReadText(ctx context.Context, el Element) (string, error)
	Reload(ctx context.Context, timeout time.Duration) error
	CurrentLocation(ctx context.Context) (string, error)

	// Close ends the session. Calls after Close fail with ErrStaleContext.
	Close() error
}

// Factory creates a fresh driver session.
type Factory interface {
	NewSession(ctx context.Context) (Driver, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (Driver, error)

// NewSession calls f.
func (f FactoryFunc) NewSession(ctx context.Context) (Driver, error) {
	return f(ctx)
}
