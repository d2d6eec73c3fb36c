package engine

import (
	"context"
	"errors"
	"time"

	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/logger"
	"github.com/chr1sbest/stagehand/internal/resilience"
)

// burst clicks the burst surface on an outer x inner grid of positions.
// The restart flag is checked before every click; when it is set the burst
// stops at once and the round starts over.
func (s *session) burst(ctx context.Context) error {
	b := s.cfg.Burst
	nc, surface, err := s.locateNested(ctx, driver.Locator(s.cfg.Locators.BurstSurface))
	if err != nil {
		return err
	}

	tier := resilience.Tier{
		Name:        "burst-click",
		Ceiling:     b.GetClickRetries() + 1,
		Backoff:     resilience.FixedDelay(s.cfg.GetStageRetryDelay()),
		ShouldRetry: retryableLookup,
		Wait:        s.interruptibleWait,
	}
	interval := b.GetInterval()
	timeout := s.cfg.Timeouts.GetClick()

	for i := 0; i < b.Outer; i++ {
		for j := 0; j < b.Inner; j++ {
			if s.state.Terminated() {
				return ErrTerminated
			}
			if s.state.RestartRequested() {
				return ErrRestartRequested
			}

			at := b.Position(i, j)
			err := tier.Run(ctx, func(ctx context.Context, attempt int) error {
				return nc.Click(ctx, driver.ByElement(surface), &at, timeout)
			}, func(attempt int, err error, next time.Duration) {
				s.log.Debug("burst click failed, retrying",
					logger.F("position", at.String()),
					logger.F("attempt", attempt),
					logger.F("error", err),
				)
			})
			if err != nil {
				var ex *resilience.ExhaustedError
				if errors.As(err, &ex) {
					return ex.Err
				}
				return err
			}

			if i == b.Outer-1 && j == b.Inner-1 {
				break
			}
			if err := s.state.Sleep(ctx, interval, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// locateNested finds the first nested context under the host that contains
// loc, retrying a few times since nested contexts attach late.
func (s *session) locateNested(ctx context.Context, loc driver.Locator) (driver.NestedContext, driver.Element, error) {
	tier := resilience.Tier{
		Name:        "locate",
		Ceiling:     s.cfg.Burst.GetLocateRetries() + 1,
		Backoff:     resilience.FixedDelay(s.cfg.GetStageRetryDelay()),
		ShouldRetry: retryableLookup,
		Wait:        s.interruptibleWait,
	}

	var (
		found driver.NestedContext
		el    driver.Element
	)
	err := tier.Run(ctx, func(ctx context.Context, attempt int) error {
		var err error
		found, el, err = s.findNested(ctx, loc)
		return err
	}, nil)
	if err != nil {
		var ex *resilience.ExhaustedError
		if errors.As(err, &ex) {
			return nil, nil, ex.Err
		}
		return nil, nil, err
	}
	return found, el, nil
}

func (s *session) findNested(ctx context.Context, loc driver.Locator) (driver.NestedContext, driver.Element, error) {
	host, err := s.drv.WaitForElement(ctx, driver.Locator(s.cfg.Locators.NestedHost), s.cfg.Timeouts.GetElement(), true)
	if err != nil {
		return nil, nil, err
	}
	contexts, err := s.drv.NestedContexts(ctx, host)
	if err != nil {
		return nil, nil, err
	}

	var lastErr error
	for nc := range contexts {
		el, ok, err := nc.Probe(ctx, loc)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return nc, el, nil
		}
	}
	if lastErr != nil {
		return nil, nil, lastErr
	}
	return nil, nil, driver.NewError(driver.KindElementNotFound, driver.OpProbe, loc, nil)
}

// retryableLookup retries misses and timeouts in place. A stale context
// needs recovery, so it is not retried here.
func retryableLookup(err error) bool {
	switch driver.KindOf(err) {
	case driver.KindElementNotFound, driver.KindActionTimeout, driver.KindUnknown:
		return !errors.Is(err, ErrRestartRequested) && !errors.Is(err, ErrTerminated) &&
			!errors.Is(err, context.Canceled)
	}
	return false
}

func (s *session) interruptibleWait(ctx context.Context, d time.Duration) error {
	return s.state.Sleep(ctx, d, true)
}
