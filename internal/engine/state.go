package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTerminated is returned by waits once the attempt is over.
	ErrTerminated = errors.New("attempt terminated")

	// ErrRestartRequested is returned by interruptible waits when the round
	// has to start over.
	ErrRestartRequested = errors.New("round restart requested")
)

// RestartReason records why the round-end watchdog asked for a restart.
type RestartReason string

const (
	ReasonContinueClicked RestartReason = "continue-clicked"
	ReasonTriggerReady    RestartReason = "trigger-ready"
)

// RunState is the state shared by the sequencer and the watchdogs of one
// attempt. Every field is atomic; changes that matter to a sleeping routine
// are broadcast on the wake channel.
//
// Writers: roundsCompleted and the restart flag's clear belong to the
// sequencer. Any routine may set the restart flag or terminate.
type RunState struct {
	maxRounds int

	roundsCompleted atomic.Int64
	restart         atomic.Bool
	reason          atomic.Value // RestartReason
	terminated      atomic.Bool
	counters        [numCounterKinds]atomic.Int64

	mu       sync.Mutex
	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// NewRunState creates fresh state for one attempt.
func NewRunState(maxRounds int) *RunState {
	if maxRounds < 1 {
		maxRounds = 1
	}
	return &RunState{
		maxRounds: maxRounds,
		wake:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// MaxRounds returns the number of rounds the attempt must complete.
func (s *RunState) MaxRounds() int { return s.maxRounds }

// RoundsCompleted returns how many rounds finished successfully.
func (s *RunState) RoundsCompleted() int { return int(s.roundsCompleted.Load()) }

// completeRound is called by the sequencer after a successful completion
// probe.
func (s *RunState) completeRound() int {
	n := s.roundsCompleted.Add(1)
	s.broadcast()
	return int(n)
}

// RequestRestart sets the restart flag. Setting it twice is the same as
// setting it once; the latest reason wins.
func (s *RunState) RequestRestart(reason RestartReason) {
	s.reason.Store(reason)
	s.restart.Store(true)
	s.broadcast()
}

// noteRestartReason refines the reason of a pending request without raising
// the flag again.
func (s *RunState) noteRestartReason(reason RestartReason) {
	if s.restart.Load() {
		s.reason.Store(reason)
	}
}

// RestartRequested reports whether the flag is set.
func (s *RunState) RestartRequested() bool { return s.restart.Load() }

// RestartReason returns the reason of the most recent request.
func (s *RunState) RestartReason() RestartReason {
	r, _ := s.reason.Load().(RestartReason)
	return r
}

// takeRestart clears the flag if set. Only the sequencer calls it.
func (s *RunState) takeRestart() (RestartReason, bool) {
	if !s.restart.CompareAndSwap(true, false) {
		return "", false
	}
	return s.RestartReason(), true
}

// Terminate ends the attempt for every routine.
func (s *RunState) Terminate() {
	s.terminated.Store(true)
	s.doneOnce.Do(func() { close(s.done) })
	s.broadcast()
}

// Terminated reports whether Terminate was called.
func (s *RunState) Terminated() bool { return s.terminated.Load() }

// TerminatedChan is closed by Terminate.
func (s *RunState) TerminatedChan() <-chan struct{} { return s.done }

// Finished reports whether the watchdogs should stop.
func (s *RunState) Finished() bool {
	return s.Terminated() || s.RoundsCompleted() >= s.maxRounds
}

// Counter returns the current value of a failure counter.
func (s *RunState) Counter(kind CounterKind) int {
	return int(s.counters[kind].Load())
}

// Counters snapshots every failure counter by name.
func (s *RunState) Counters() map[string]int {
	out := make(map[string]int, numCounterKinds)
	for k := CounterKind(0); k < numCounterKinds; k++ {
		out[k.String()] = s.Counter(k)
	}
	return out
}

// bump increments kind unless it is already at ceiling. It returns the
// resulting value and whether an increment happened.
func (s *RunState) bump(kind CounterKind, ceiling int) (int, bool) {
	c := &s.counters[kind]
	for {
		cur := c.Load()
		if cur >= int64(ceiling) {
			return int(cur), false
		}
		if c.CompareAndSwap(cur, cur+1) {
			return int(cur + 1), true
		}
	}
}

func (s *RunState) reset(kind CounterKind) {
	s.counters[kind].Store(0)
}

func (s *RunState) wakeChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wake
}

func (s *RunState) broadcast() {
	s.mu.Lock()
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()
}

// Sleep waits for d. It returns early with ErrTerminated when the attempt
// ends, with ErrRestartRequested when interruptible and a restart is
// requested, or with the context's error.
func (s *RunState) Sleep(ctx context.Context, d time.Duration, interruptible bool) error {
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		wake := s.wakeChan()
		if s.Terminated() {
			return ErrTerminated
		}
		if interruptible && s.RestartRequested() {
			return ErrRestartRequested
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if timeout == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return nil
		case <-wake:
		}
	}
}
