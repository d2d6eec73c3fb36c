package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/chr1sbest/stagehand/internal/driver"
	"github.com/chr1sbest/stagehand/internal/logger"
)

// Watchdog names used in logs and metrics.
const (
	WatchdogInactivity = "inactivity"
	WatchdogRoundEnd   = "round_end"
)

// watch calls check every poll interval until the attempt is finished or
// ctx is done.
func (s *session) watch(ctx context.Context, check func(ctx context.Context)) {
	poll := s.cfg.GetPollInterval()
	for !s.state.Finished() {
		if ctx.Err() != nil {
			return
		}
		check(ctx)
		if err := s.state.Sleep(ctx, poll, false); err != nil {
			return
		}
	}
}

// InactivityWatchdog dismisses the inactivity overlay with a click
// elsewhere. Every error is logged and swallowed; it never ends an attempt.
type InactivityWatchdog struct {
	s       *session
	overlay driver.Locator
	target  driver.Locator
	at      driver.Point
	limiter *rate.Limiter
	log     logger.Logger
}

func newInactivityWatchdog(s *session) *InactivityWatchdog {
	in := s.cfg.Inactivity
	perMinute := float64(in.GetMaxPerMinute())
	return &InactivityWatchdog{
		s:       s,
		overlay: driver.Locator(s.cfg.Locators.InactivityOverlay),
		target:  driver.Locator(in.GetDismissTarget()),
		at:      in.GetDismissAt(),
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), 1),
		log:     s.log.WithFields(logger.F("routine", "inactivity_watchdog")),
	}
}

// Run polls until the attempt finishes. It always returns nil.
func (w *InactivityWatchdog) Run(ctx context.Context) error {
	if w.overlay == "" {
		return nil
	}
	w.s.watch(ctx, w.check)
	return nil
}

func (w *InactivityWatchdog) check(ctx context.Context) {
	_, visible, err := w.s.drv.Probe(ctx, w.overlay)
	if err != nil {
		w.log.Debug("probe failed", logger.F("error", err))
		return
	}
	if !visible {
		return
	}
	if !w.limiter.Allow() {
		w.log.Debug("inactivity overlay visible, corrective click throttled")
		return
	}

	w.log.Info("inactivity overlay detected, dismissing")
	at := w.at
	if err := w.s.drv.Click(ctx, driver.ByLocator(w.target), &at, w.s.cfg.Timeouts.GetClick()); err != nil {
		w.log.Warn("corrective click failed", logger.F("error", err))
		return
	}
	w.s.obs.WatchdogAction(WatchdogInactivity)
}

// RoundEndWatchdog notices the end-of-round marker, presses continue and
// asks the sequencer to start the round over. It only ever sets the restart
// flag; clearing it is left to the sequencer.
type RoundEndWatchdog struct {
	s       *session
	marker  driver.Locator
	cont    driver.Locator
	trigger driver.Locator
	log     logger.Logger
}

func newRoundEndWatchdog(s *session) *RoundEndWatchdog {
	return &RoundEndWatchdog{
		s:       s,
		marker:  driver.Locator(s.cfg.Locators.RoundEnd),
		cont:    driver.Locator(s.cfg.Locators.Continue),
		trigger: driver.Locator(s.cfg.Locators.Trigger),
		log:     s.log.WithFields(logger.F("routine", "round_end_watchdog")),
	}
}

// Run polls until the attempt finishes. It always returns nil.
func (w *RoundEndWatchdog) Run(ctx context.Context) error {
	if w.marker == "" || w.cont == "" {
		return nil
	}
	w.s.watch(ctx, w.check)
	return nil
}

func (w *RoundEndWatchdog) check(ctx context.Context) {
	s := w.s
	_, visible, err := s.drv.Probe(ctx, w.marker)
	if err != nil {
		w.log.Debug("probe failed", logger.F("error", err))
		return
	}
	if !visible {
		return
	}

	w.log.Info("end of round detected")
	settle := s.cfg.GetSettleDelay()
	if err := s.state.Sleep(ctx, settle, false); err != nil {
		return
	}

	el, err := s.drv.WaitForElement(ctx, w.cont, s.cfg.Timeouts.GetContinue(), true)
	if err != nil {
		w.log.Warn("continue not found", logger.F("error", err))
		return
	}
	if err := s.drv.Click(ctx, driver.ByElement(el), nil, s.cfg.Timeouts.GetClick()); err != nil {
		w.log.Warn("continue click failed", logger.F("error", err))
		return
	}
	s.state.RequestRestart(ReasonContinueClicked)
	s.obs.WatchdogAction(WatchdogRoundEnd)

	if err := s.state.Sleep(ctx, settle, false); err != nil {
		return
	}

	start := time.Now()
	if _, err := s.drv.WaitForElement(ctx, w.trigger, s.cfg.Timeouts.GetTriggerRecheck(), true); err != nil {
		w.log.Info("trigger not back after continue", logger.F("waited", time.Since(start).String()))
		return
	}
	s.state.noteRestartReason(ReasonTriggerReady)
	w.log.Info("trigger ready after continue")
}
