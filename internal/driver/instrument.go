package driver

import (
	"context"
	"errors"
	"iter"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// CallObserver receives one observation per driver call.
type CallObserver interface {
	ObserveDriverCall(op, outcome string, elapsed time.Duration)
}

// Outcome labels recorded for a call.
const (
	OutcomeOK       = "ok"
	OutcomeCanceled = "canceled"
)

// Instrument wraps d so every call is classified, timed, counted and traced.
// Either obs or tracer may be nil.
func Instrument(d Driver, obs CallObserver, tracer trace.Tracer) Driver {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &instrumented{next: d, obs: obs, tracer: tracer}
}

type instrumented struct {
	next   Driver
	obs    CallObserver
	tracer trace.Tracer
}

// observe finishes a call: classifies err, ends the span and records the
// outcome.
func observe(ctx context.Context, obs CallObserver, span trace.Span, op string, loc Locator, start time.Time, err error) error {
	err = Classify(ctx, op, loc, err)
	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), ctx.Err() != nil && errors.Is(err, ctx.Err()):
		outcome = OutcomeCanceled
	default:
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
	if obs != nil {
		obs.ObserveDriverCall(op, outcome, time.Since(start))
	}
	return err
}

func (i *instrumented) start(ctx context.Context, op string, loc Locator) (context.Context, trace.Span, time.Time) {
	ctx, span := i.tracer.Start(ctx, "driver."+op, trace.WithAttributes(
		attribute.String("driver.op", op),
		attribute.String("driver.locator", string(loc)),
	))
	return ctx, span, time.Now()
}

func (i *instrumented) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	sctx, span, start := i.start(ctx, OpNavigate, "")
	span.SetAttributes(attribute.String("driver.url", url))
	err := i.next.Navigate(sctx, url, timeout)
	return observe(ctx, i.obs, span, OpNavigate, "", start, err)
}

func (i *instrumented) WaitForElement(ctx context.Context, loc Locator, timeout time.Duration, visible bool) (Element, error) {
	sctx, span, start := i.start(ctx, OpWait, loc)
	el, err := i.next.WaitForElement(sctx, loc, timeout, visible)
	return el, observe(ctx, i.obs, span, OpWait, loc, start, err)
}

func (i *instrumented) Click(ctx context.Context, target Target, at *Point, timeout time.Duration) error {
	loc := target.Describe()
	sctx, span, start := i.start(ctx, OpClick, loc)
	if at != nil {
		span.SetAttributes(attribute.Int("driver.x", at.X), attribute.Int("driver.y", at.Y))
	}
	err := i.next.Click(sctx, target, at, timeout)
	return observe(ctx, i.obs, span, OpClick, loc, start, err)
}

func (i *instrumented) Probe(ctx context.Context, loc Locator) (Element, bool, error) {
	sctx, span, start := i.start(ctx, OpProbe, loc)
	el, ok, err := i.next.Probe(sctx, loc)
	span.SetAttributes(attribute.Bool("driver.found", ok))
	return el, ok, observe(ctx, i.obs, span, OpProbe, loc, start, err)
}

func (i *instrumented) NestedContexts(ctx context.Context, host Element) (iter.Seq[NestedContext], error) {
	var loc Locator
	if host != nil {
		loc = host.Locator()
	}
	sctx, span, start := i.start(ctx, OpNested, loc)
	seq, err := i.next.NestedContexts(sctx, host)
	if err = observe(ctx, i.obs, span, OpNested, loc, start, err); err != nil {
		return nil, err
	}
	return func(yield func(NestedContext) bool) {
		for nc := range seq {
			if !yield(&instrumentedNested{next: nc, parent: i}) {
				return
			}
		}
	}, nil
}

func (i *instrumented) ReadText(ctx context.Context, el Element) (string, error) {
	var loc Locator
	if el != nil {
		loc = el.Locator()
	}
	sctx, span, start := i.start(ctx, OpText, loc)
	text, err := i.next.ReadText(sctx, el)
	return text, observe(ctx, i.obs, span, OpText, loc, start, err)
}

func (i *instrumented) Reload(ctx context.Context, timeout time.Duration) error {
	sctx, span, start := i.start(ctx, OpReload, "")
	err := i.next.Reload(sctx, timeout)
	return observe(ctx, i.obs, span, OpReload, "", start, err)
}

func (i *instrumented) CurrentLocation(ctx context.Context) (string, error) {
	sctx, span, start := i.start(ctx, OpLocation, "")
	loc, err := i.next.CurrentLocation(sctx)
	return loc, observe(ctx, i.obs, span, OpLocation, "", start, err)
}

func (i *instrumented) Close() error {
	return i.next.Close()
}

type instrumentedNested struct {
	next   NestedContext
	parent *instrumented
}

func (n *instrumentedNested) Name() string { return n.next.Name() }

func (n *instrumentedNested) start(ctx context.Context, op string, loc Locator) (context.Context, trace.Span, time.Time) {
	ctx, span, start := n.parent.start(ctx, op, loc)
	span.SetAttributes(attribute.String("driver.context", n.next.Name()))
	return ctx, span, start
}

func (n *instrumentedNested) Probe(ctx context.Context, loc Locator) (Element, bool, error) {
	sctx, span, start := n.start(ctx, OpProbe, loc)
	el, ok, err := n.next.Probe(sctx, loc)
	return el, ok, observe(ctx, n.parent.obs, span, OpProbe, loc, start, err)
}

func (n *instrumentedNested) WaitForElement(ctx context.Context, loc Locator, timeout time.Duration, visible bool) (Element, error) {
	sctx, span, start := n.start(ctx, OpWait, loc)
	el, err := n.next.WaitForElement(sctx, loc, timeout, visible)
	return el, observe(ctx, n.parent.obs, span, OpWait, loc, start, err)
}

func (n *instrumentedNested) Click(ctx context.Context, target Target, at *Point, timeout time.Duration) error {
	loc := target.Describe()
	sctx, span, start := n.start(ctx, OpClick, loc)
	err := n.next.Click(sctx, target, at, timeout)
	return observe(ctx, n.parent.obs, span, OpClick, loc, start, err)
}

func (n *instrumentedNested) ReadText(ctx context.Context, el Element) (string, error) {
	var loc Locator
	if el != nil {
		loc = el.Locator()
	}
	sctx, span, start := n.start(ctx, OpText, loc)
	text, err := n.next.ReadText(sctx, el)
	return text, observe(ctx, n.parent.obs, span, OpText, loc, start, err)
}
