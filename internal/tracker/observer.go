package tracker

import (
	"os"
	"sync"
	"time"

	"github.com/chr1sbest/stagehand/internal/engine"
	"github.com/chr1sbest/stagehand/internal/logger"
)

// Tracker mirrors a run into run_state.json. It is an engine.Observer and
// engine.StatusReporter; the runner tells it about attempts.
//
// Write failures are logged and otherwise ignored: losing the status file
// must never stop a run.
type Tracker struct {
	w     *Writer
	log   logger.Logger
	runID string

	mu sync.Mutex
	st RunState
}

// New starts tracking run runID.
func New(w *Writer, runID string, maxAttempts, maxRounds int, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	now := time.Now()
	t := &Tracker{
		w:     w,
		log:   log,
		runID: runID,
		st: RunState{
			RunID:       runID,
			PID:         os.Getpid(),
			StartedAt:   now,
			MaxAttempts: maxAttempts,
			MaxRounds:   maxRounds,
			Status:      StatusStarting,
		},
	}
	if err := w.StartRun(runID); err != nil {
		log.Warn("failed to update history", logger.F("error", err))
	}
	t.update(func(*RunState) {})
	return t
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() RunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.st
	st.Counters = copyCounters(t.st.Counters)
	st.Failures = copyCounters(t.st.Failures)
	return st
}

// AttemptStarted resets per-attempt fields.
func (t *Tracker) AttemptStarted(attempt int, id string) {
	t.update(func(st *RunState) {
		st.Attempt = attempt
		st.AttemptID = id
		st.Round = 0
		st.RoundsCompleted = 0
		st.Stage = ""
		st.Counters = nil
		st.Failures = nil
		if attempt > 1 {
			st.Status = StatusRestarting
		} else {
			st.Status = StatusRunning
		}
	})
}

// AttemptFinished records how an attempt ended.
func (t *Tracker) AttemptFinished(r engine.Report) {
	if err := t.w.RecordAttempt(t.runID, r.Result.String(), r.RoundsCompleted); err != nil {
		t.log.Warn("failed to update history", logger.F("error", err))
	}
	t.update(func(st *RunState) {
		st.LastResult = r.Result.String()
		st.RoundsCompleted = r.RoundsCompleted
		st.Counters = copyCounters(r.Counters)
		st.RestartReason = string(r.RestartReason)
		st.Stage = ""
		st.LastError = ""
		if r.Err != nil {
			st.LastError = r.Err.Error()
		}
	})
}

// Finish marks the run as over.
func (t *Tracker) Finish(status string, err error) {
	t.update(func(st *RunState) {
		st.Status = status
		st.Stage = ""
		if err != nil {
			st.LastError = err.Error()
		}
	})
}

func (t *Tracker) FailureRecorded(kind string) {
	t.update(func(st *RunState) {
		if st.Failures == nil {
			st.Failures = make(map[string]int)
		}
		st.Failures[kind]++
	})
}

func (t *Tracker) DecisionMade(string, string) {}

func (t *Tracker) RoundCompleted(round int) {
	t.update(func(st *RunState) {
		st.RoundsCompleted = round
	})
}

func (t *Tracker) WatchdogAction(watchdog string) {
	if watchdog == engine.WatchdogRoundEnd {
		t.update(func(st *RunState) { st.RestartReason = string(engine.ReasonContinueClicked) })
	}
}

func (t *Tracker) Stage(round, maxRounds int, stage string) {
	t.update(func(st *RunState) {
		if st.Stage != stage || st.Round != round {
			st.StageStartedAt = time.Now()
		}
		st.Round = round
		st.MaxRounds = maxRounds
		st.Stage = stage
		st.Status = StatusRunning
	})
}

func (t *Tracker) Note(msg string) {
	t.update(func(st *RunState) { st.LastNote = msg })
}

func (t *Tracker) update(fn func(st *RunState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.st)
	t.st.UpdatedAt = time.Now()
	if err := t.w.WriteRunState(t.st); err != nil {
		t.log.Warn("failed to write run state", logger.F("error", err))
	}
}

func copyCounters(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	_ engine.Observer       = (*Tracker)(nil)
	_ engine.StatusReporter = (*Tracker)(nil)
)
