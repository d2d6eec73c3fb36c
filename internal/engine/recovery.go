package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/logger"
	"github.com/chr1sbest/stagehand/internal/resilience"
)

// enterCheckpoint navigates to cp, performs its entry steps and waits for
// the ready element. Landing somewhere other than the expected location is
// reported as ErrUnauthenticated.
func (s *session) enterCheckpoint(ctx context.Context, cp Checkpoint) error {
	t := s.cfg.Timeouts
	if err := s.drv.Navigate(ctx, cp.URL, t.GetNavigate()); err != nil {
		return err
	}

	if cp.ExpectLocation != "" {
		loc, err := s.drv.CurrentLocation(ctx)
		if err != nil {
			return err
		}
		if !strings.Contains(loc, cp.ExpectLocation) {
			return driver.NewError(driver.KindUnauthenticated, driver.OpLocation, "",
				fmt.Errorf("landed on %s", loc))
		}
	}

	for _, step := range cp.Entry {
		el, err := s.drv.WaitForElement(ctx, step.Locator, t.GetElement(), true)
		if err != nil {
			return err
		}
		if err := s.drv.Click(ctx, driver.ByElement(el), nil, t.GetClick()); err != nil {
			return err
		}
		if err := s.state.Sleep(ctx, step.Settle, false); err != nil {
			return err
		}
	}

	_, err := s.drv.WaitForElement(ctx, cp.Ready, t.GetElement(), true)
	return err
}

// recover reloads the target and re-enters the checkpoint.
func (s *session) recover(ctx context.Context, cp *Checkpoint) (err error) {
	ctx, span := s.tracer.Start(ctx, "recovery")
	span.SetAttributes(attribute.String("checkpoint", cp.Name))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "recovery failed")
		}
		span.End()
	}()

	s.status.Note("recovering to " + cp.Name)
	s.log.Info("recovering", logger.F("checkpoint", cp.Name))

	if err := s.drv.Reload(ctx, s.cfg.Timeouts.GetReload()); err != nil {
		return err
	}
	return s.enterCheckpoint(ctx, *cp)
}

// recoverUntilReady keeps recovering until it works, the round counter hits
// its ceiling, or the failure cannot be fixed by recovery.
func (s *session) recoverUntilReady(ctx context.Context, cp *Checkpoint) error {
	for {
		err := s.recover(ctx, cp)
		if err == nil {
			return nil
		}
		if isStop(ctx, err) || driver.KindOf(err) == driver.KindUnauthenticated {
			return err
		}

		s.log.Warn("recovery failed", logger.F("error", err))
		if s.esc.OnFailure(RoundAttemptFailure) == AbortAttempt {
			return &CeilingError{
				Kind:    RoundAttemptFailure,
				Ceiling: s.esc.Ceiling(RoundAttemptFailure),
				Err:     err,
			}
		}
		if err := s.state.Sleep(ctx, s.cfg.GetStageRetryDelay(), false); err != nil {
			return err
		}
	}
}

// enter runs the attempt's entry sequence with its own bounded retry,
// reloading between tries.
func (s *session) enter(ctx context.Context) error {
	tier := resilience.Tier{
		Name:    "entry",
		Ceiling: s.cfg.GetEntryRetries(),
		Backoff: resilience.FixedDelay(s.cfg.GetStageRetryDelay()),
		ShouldRetry: func(err error) bool {
			return !isStop(ctx, err) && resilience.Retryable(err)
		},
		Wait: func(ctx context.Context, d time.Duration) error {
			return s.state.Sleep(ctx, d, false)
		},
	}

	return tier.Run(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			if err := s.drv.Reload(ctx, s.cfg.Timeouts.GetReload()); err != nil {
				return err
			}
		}
		return s.enterCheckpoint(ctx, s.checkpoint)
	}, func(attempt int, err error, next time.Duration) {
		s.log.Warn("checkpoint entry failed",
			logger.F("attempt", attempt),
			logger.F("of", tier.Ceiling),
			logger.F("error", err),
		)
		s.status.Note(fmt.Sprintf("entry retry %d/%d", attempt, tier.Ceiling))
	})
}

// isStop reports whether err means the attempt is ending rather than that
// something failed.
func isStop(ctx context.Context, err error) bool {
	return errors.Is(err, ErrTerminated) || ctx.Err() != nil
}
