// Package runner is the outer loop: it gives every attempt a fresh driver
// session and fresh state, and restarts failed attempts up to a ceiling.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/engine"
	"github.com/chr1sbest/stagehand/internal/logger"
	"github.com/chr1sbest/stagehand/internal/resilience"
)

// ErrRestartsExhausted is returned when no attempt completed.
var ErrRestartsExhausted = errors.New("restarts exhausted")

// ConfigSource hands out the config for the next attempt. config.Watcher
// satisfies it.
type ConfigSource interface {
	Current() *config.Config
}

// StaticConfig is a ConfigSource that never changes.
type StaticConfig struct{ Config *config.Config }

// Current returns the wrapped config.
func (s StaticConfig) Current() *config.Config { return s.Config }

// AttemptHooks hear about attempts as they start and finish.
type AttemptHooks interface {
	AttemptStarted(attempt int, id string)
	AttemptFinished(engine.Report)
}

// Status is the human-facing progress surface.
type Status interface {
	engine.StatusReporter
	Attempt(attempt, maxAttempts int)
	Restarting(reason string)
}

// Summary describes a finished run.
type Summary struct {
	Attempts int
	Last     engine.Report
}

// Runner runs attempts until one completes or the restart ceiling is hit.
type Runner struct {
	factory   driver.Factory
	configs   ConfigSource
	log       logger.Logger
	tracer    trace.Tracer
	observers engine.Observers
	statuses  engine.StatusReporters
	status    Status
	hooks     []AttemptHooks
	calls     driver.CallObserver
	refresher CredentialRefresher
	wait      func(ctx context.Context, d time.Duration) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(r *Runner) { r.log = l } }

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option { return func(r *Runner) { r.tracer = t } }

// WithObserver adds an engine observer.
func WithObserver(o engine.Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithStatusReporter adds a reporter that only hears about stages.
func WithStatusReporter(s engine.StatusReporter) Option {
	return func(r *Runner) { r.statuses = append(r.statuses, s) }
}

// WithStatus sets the terminal status.
func WithStatus(s Status) Option { return func(r *Runner) { r.status = s } }

// WithHooks adds attempt hooks.
func WithHooks(h AttemptHooks) Option { return func(r *Runner) { r.hooks = append(r.hooks, h) } }

// WithCallObserver records every driver call.
func WithCallObserver(o driver.CallObserver) Option { return func(r *Runner) { r.calls = o } }

// WithRefresher runs before the next attempt when a session lost its
// authentication.
func WithRefresher(c CredentialRefresher) Option { return func(r *Runner) { r.refresher = c } }

// withWait replaces the restart backoff wait, for tests.
func withWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) { r.wait = fn }
}

// New creates a runner. configs must have a config loaded.
func New(factory driver.Factory, configs ConfigSource, opts ...Option) *Runner {
	r := &Runner{factory: factory, configs: configs}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.NewNoopLogger()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(engine.TracerName)
	}
	return r
}

// attemptError carries the report of an attempt that did not complete.
type attemptError struct {
	report engine.Report
}

func (e *attemptError) Error() string {
	if e.report.Err == nil {
		return "attempt " + e.report.Result.String()
	}
	return fmt.Sprintf("attempt %s: %v", e.report.Result, e.report.Err)
}

func (e *attemptError) Unwrap() error { return e.report.Err }

// Run starts attempts until one completes. max_restarts and restart_backoff
// are read once, from the config current at start; every other setting is
// read again for each attempt.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	cfg := r.configs.Current()
	if cfg == nil {
		return Summary{}, errors.New("runner: no config loaded")
	}

	var sum Summary
	tier := resilience.Tier{
		Name:    "process",
		Ceiling: cfg.GetMaxRestarts(),
		Backoff: resilience.FixedDelay(cfg.GetRestartBackoff()),
		ShouldRetry: func(err error) bool {
			var ae *attemptError
			return errors.As(err, &ae)
		},
		Wait: r.wait,
	}

	err := tier.Run(ctx, func(ctx context.Context, attempt int) error {
		sum.Attempts = attempt
		sum.Last = r.runAttempt(ctx, attempt, tier.Ceiling)
		if sum.Last.Result == engine.Completed {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if sum.Last.Unauthenticated() {
			r.refresh(ctx)
		}
		return &attemptError{report: sum.Last}
	}, func(attempt int, err error, delay time.Duration) {
		r.log.Warn("attempt failed, restarting",
			logger.F("attempt", attempt),
			logger.F("max_attempts", tier.Ceiling),
			logger.F("delay", delay.String()),
			logger.F("error", err),
		)
		if r.status != nil {
			r.status.Restarting(err.Error())
		}
	})

	var ex *resilience.ExhaustedError
	switch {
	case err == nil:
		r.log.Info("run completed", logger.F("attempts", sum.Attempts), logger.F("rounds", sum.Last.RoundsCompleted))
		return sum, nil
	case errors.As(err, &ex):
		r.log.Error("giving up", logger.F("attempts", ex.Attempts), logger.F("error", ex.Err))
		return sum, fmt.Errorf("%w after %d attempt(s): %w", ErrRestartsExhausted, ex.Attempts, ex.Err)
	default:
		return sum, err
	}
}

func (r *Runner) runAttempt(ctx context.Context, attempt, maxAttempts int) engine.Report {
	cfg := r.configs.Current()
	id := ulid.Make().String()
	log := r.log.WithFields(logger.F("attempt_number", attempt))

	log.Info("starting attempt", logger.F("attempt", id), logger.F("max_attempts", maxAttempts))
	if r.status != nil {
		r.status.Attempt(attempt, maxAttempts)
	}
	for _, h := range r.hooks {
		h.AttemptStarted(attempt, id)
	}

	report := r.attempt(ctx, cfg, id, log)

	for _, h := range r.hooks {
		h.AttemptFinished(report)
	}
	return report
}

func (r *Runner) attempt(ctx context.Context, cfg *config.Config, id string, log logger.Logger) engine.Report {
	drv, err := r.factory.NewSession(ctx)
	if err != nil {
		now := time.Now()
		log.Error("failed to open driver session", logger.F("error", err))
		return engine.Report{
			ID:        id,
			Result:    engine.Aborted,
			MaxRounds: cfg.GetMaxRounds(),
			Err:       fmt.Errorf("open driver session: %w", err),
			Started:   now,
			Finished:  now,
		}
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn("failed to close driver session", logger.F("error", err))
		}
	}()

	statuses := append(engine.StatusReporters{}, r.statuses...)
	if r.status != nil {
		statuses = append(statuses, r.status)
	}
	return engine.RunAttempt(ctx, cfg, driver.Instrument(drv, r.calls, r.tracer),
		engine.WithID(id),
		engine.WithLogger(log),
		engine.WithObserver(r.observers),
		engine.WithStatus(statuses),
		engine.WithTracer(r.tracer),
	)
}

func (r *Runner) refresh(ctx context.Context) {
	if r.refresher == nil {
		r.log.Warn("session is unauthenticated and no credential refresher is configured")
		return
	}
	r.log.Info("refreshing credentials")
	if err := r.refresher.Refresh(ctx); err != nil {
		r.log.Error("credential refresh failed", logger.F("error", err))
	}
}
