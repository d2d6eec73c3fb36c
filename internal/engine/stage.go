package engine

import (
	"context"
	"time"

	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/driver"
)

// Stage names, in round order.
const (
	StageTrigger    = "trigger"
	StageLoadWait   = "load-wait"
	StageBurst      = "burst"
	StageCompletion = "completion"
)

// Stage is one step of a round.
type Stage struct {
	Name string

	// Timeout bounds one run of the stage. Zero leaves it to the per-call
	// driver timeouts.
	Timeout time.Duration

	// Retryable stages may be retried in place; the others restart the
	// round when they fail.
	Retryable bool

	// Checkpoint is where recovery returns to after this stage breaks.
	Checkpoint *Checkpoint

	// Failure is the counter a failure of this stage is recorded against.
	Failure CounterKind

	Run func(ctx context.Context) error
}

// classify picks the counter for a failure of st.
func (st Stage) classify(err error) CounterKind {
	switch driver.KindOf(err) {
	case driver.KindStaleContext:
		return RoundAttemptFailure
	case driver.KindElementNotFound, driver.KindActionTimeout:
		if st.Name == StageTrigger {
			return TriggerTimeout
		}
	}
	return st.Failure
}

// Checkpoint is a known-good position in the target: a URL, the clicks that
// lead from it into the session, and the element that proves we are there.
type Checkpoint struct {
	Name           string
	URL            string
	ExpectLocation string
	Entry          []EntryStep
	Ready          driver.Locator
}

// EntryStep is a wait-then-click on the way into the checkpoint.
type EntryStep struct {
	Locator driver.Locator
	Settle  time.Duration
}

// CheckpointFromConfig converts the configured checkpoint.
func CheckpointFromConfig(c config.CheckpointConfig) Checkpoint {
	cp := Checkpoint{
		Name:           c.Name,
		URL:            c.URL,
		ExpectLocation: c.ExpectLocation,
		Ready:          driver.Locator(c.Ready),
	}
	if cp.Name == "" {
		cp.Name = "entry"
	}
	for _, a := range c.Entry {
		cp.Entry = append(cp.Entry, EntryStep{Locator: driver.Locator(a.Locator), Settle: a.GetSettle()})
	}
	return cp
}

// stages builds the four stages of a round.
func (s *session) stages() []Stage {
	cp := &s.checkpoint
	loadBudget := time.Duration(0)
	if s.cfg.Locators.Loaded != "" {
		loadBudget = s.cfg.GetLoadWait() + s.cfg.Timeouts.GetLoad() + time.Second
	}
	return []Stage{
		{Name: StageTrigger, Retryable: true, Checkpoint: cp, Failure: SubActionFailure, Run: s.trigger},
		{Name: StageLoadWait, Timeout: loadBudget, Checkpoint: cp, Failure: RoundAttemptFailure, Run: s.loadWait},
		{Name: StageBurst, Retryable: true, Checkpoint: cp, Failure: SubActionFailure, Run: s.burst},
		{Name: StageCompletion, Checkpoint: cp, Failure: RoundAttemptFailure, Run: s.completion},
	}
}

func (s *session) trigger(ctx context.Context) error {
	if err := s.state.Sleep(ctx, s.cfg.GetTriggerSettle(), true); err != nil {
		return err
	}
	loc := driver.Locator(s.cfg.Locators.Trigger)
	el, err := s.drv.WaitForElement(ctx, loc, s.cfg.Timeouts.GetTrigger(), true)
	if err != nil {
		return err
	}
	if err := s.drv.Click(ctx, driver.ByElement(el), nil, s.cfg.Timeouts.GetClick()); err != nil {
		return err
	}
	return s.state.Sleep(ctx, s.cfg.GetPostClickSettle(), true)
}

// loadWait blocks for the fixed load duration, then confirms the loaded
// marker when one is configured.
func (s *session) loadWait(ctx context.Context) error {
	if err := s.state.Sleep(ctx, s.cfg.GetLoadWait(), true); err != nil {
		return err
	}
	if s.cfg.Locators.Loaded == "" {
		return nil
	}
	_, err := s.drv.WaitForElement(ctx, driver.Locator(s.cfg.Locators.Loaded), s.cfg.Timeouts.GetLoad(), true)
	return err
}

func (s *session) completion(ctx context.Context) error {
	_, _, err := s.locateNested(ctx, driver.Locator(s.cfg.Locators.SuccessMarker))
	return err
}
