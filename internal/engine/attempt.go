// Package engine runs one attempt at a remote interactive session: a stage
// sequencer working through rounds while two watchdogs react to things the
// target does on its own.
//
// The three routines share a RunState and a single driver. They never share
// anything else and never lock; coordination is the restart flag, the
// terminated flag and the round counter.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/logger"
)

// TracerName is the instrumentation scope of engine spans.
const TracerName = "github.com/chr1sbest/stagehand/internal/engine"

// AttemptResult is how an attempt ended.
type AttemptResult int

const (
	Completed AttemptResult = iota
	Aborted
	RestartRequested
)

func (r AttemptResult) String() string {
	switch r {
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case RestartRequested:
		return "restart_requested"
	default:
		return "unknown"
	}
}

// Report summarizes a finished attempt.
type Report struct {
	ID              string
	Result          AttemptResult
	RoundsCompleted int
	MaxRounds       int
	Counters        map[string]int
	RestartReason   RestartReason
	Err             error
	Started         time.Time
	Finished        time.Time
}

// Unauthenticated reports whether the attempt ended because the session
// lost its authentication.
func (r Report) Unauthenticated() bool {
	return errors.Is(r.Err, driver.ErrUnauthenticated)
}

// session bundles what the routines of one attempt share.
type session struct {
	id         string
	cfg        *config.Config
	drv        driver.Driver
	state      *RunState
	esc        *EscalationController
	log        logger.Logger
	obs        Observer
	status     StatusReporter
	tracer     trace.Tracer
	checkpoint Checkpoint
}

type options struct {
	id     string
	log    logger.Logger
	obs    Observer
	status StatusReporter
	tracer trace.Tracer
	state  *RunState
}

// Option configures RunAttempt.
type Option func(*options)

// WithID sets the attempt ID (default: a new ULID).
func WithID(id string) Option { return func(o *options) { o.id = id } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(o *options) { o.log = l } }

// WithObserver receives failures, decisions, rounds and watchdog actions.
func WithObserver(obs Observer) Option { return func(o *options) { o.obs = obs } }

// WithStatus receives human-facing progress.
func WithStatus(s StatusReporter) Option { return func(o *options) { o.status = s } }

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

// WithState runs the attempt on caller-provided state, so the caller can
// watch it or terminate the attempt.
func WithState(s *RunState) Option { return func(o *options) { o.state = s } }

// RunAttempt enters the checkpoint and then runs the sequencer and both
// watchdogs until the sequencer reaches a terminal result. drv must be safe
// for concurrent use.
func RunAttempt(ctx context.Context, cfg *config.Config, drv driver.Driver, opts ...Option) Report {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = ulid.Make().String()
	}
	if o.log == nil {
		o.log = logger.NewNoopLogger()
	}
	if o.obs == nil {
		o.obs = NopObserver{}
	}
	if o.status == nil {
		o.status = NopObserver{}
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(TracerName)
	}
	if o.state == nil {
		o.state = NewRunState(cfg.GetMaxRounds())
	}

	log := o.log.WithFields(logger.F("attempt", o.id))
	s := &session{
		id:         o.id,
		cfg:        cfg,
		drv:        drv,
		state:      o.state,
		log:        log,
		obs:        o.obs,
		status:     o.status,
		tracer:     o.tracer,
		checkpoint: CheckpointFromConfig(cfg.Checkpoint),
	}
	s.esc = NewEscalationController(s.state, CeilingsFromConfig(cfg), s.obs, log)

	ctx, span := s.tracer.Start(ctx, "attempt", trace.WithAttributes(
		attribute.String("attempt.id", o.id),
		attribute.Int("attempt.max_rounds", s.state.MaxRounds()),
	))
	defer span.End()

	report := Report{ID: o.id, MaxRounds: s.state.MaxRounds(), Started: time.Now()}
	finish := func(result AttemptResult, err error) Report {
		s.state.Terminate()
		report.Result = result
		report.Err = err
		report.RoundsCompleted = s.state.RoundsCompleted()
		report.Counters = s.state.Counters()
		report.RestartReason = s.state.RestartReason()
		report.Finished = time.Now()

		span.SetAttributes(
			attribute.String("attempt.result", result.String()),
			attribute.Int("attempt.rounds_completed", report.RoundsCompleted),
		)
		if result != Completed {
			if err != nil {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, result.String())
		}
		return report
	}

	log.Info("entering checkpoint", logger.F("checkpoint", s.checkpoint.Name), logger.F("url", s.checkpoint.URL))
	s.status.Note("entering " + s.checkpoint.Name)
	if err := s.enter(ctx); err != nil {
		log.Error("checkpoint entry failed", logger.F("error", err))
		return finish(Aborted, err)
	}

	// Terminating cancels in-flight driver calls of every routine.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.state.TerminatedChan():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var (
		result AttemptResult
		runErr error
	)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer s.state.Terminate()
		result, runErr = newSequencer(s).Run(gctx)
		return nil
	})
	g.Go(func() error { return newInactivityWatchdog(s).Run(gctx) })
	g.Go(func() error { return newRoundEndWatchdog(s).Run(gctx) })
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(runErr, ErrTerminated) || errors.Is(runErr, context.Canceled) {
			runErr = err
		}
	} else if errors.Is(runErr, context.Canceled) {
		runErr = ErrTerminated
	}

	switch result {
	case Completed:
		log.Info("attempt completed", logger.F("rounds", s.state.RoundsCompleted()))
	default:
		log.Warn("attempt ended", logger.F("result", result.String()), logger.F("error", runErr))
	}
	return finish(result, runErr)
}
