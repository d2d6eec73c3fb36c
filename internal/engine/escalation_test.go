package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an Observer and StatusReporter that keeps everything it sees.
type recorder struct {
	mu        sync.Mutex
	failures  []string
	decisions []string
	rounds    []int
	watchdogs []string
	stages    []string
	notes     []string
}

func (r *recorder) FailureRecorded(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, kind)
}

func (r *recorder) DecisionMade(kind, decision string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, kind+":"+decision)
}

func (r *recorder) RoundCompleted(round int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, round)
}

func (r *recorder) WatchdogAction(watchdog string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchdogs = append(r.watchdogs, watchdog)
}

func (r *recorder) Stage(round, maxRounds int, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recorder) Note(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, msg)
}

func (r *recorder) watchdogCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.watchdogs {
		if w == name {
			n++
		}
	}
	return n
}

func newController(c Ceilings) (*EscalationController, *RunState, *recorder) {
	state := NewRunState(1)
	rec := &recorder{}
	return NewEscalationController(state, c, rec, nil), state, rec
}

var threes = Ceilings{SubActionFailure: 3, RoundAttemptFailure: 3, TriggerTimeout: 3, ProcessRestart: 3}

func TestEscalation_Sequences(t *testing.T) {
	tests := []struct {
		name string
		kind CounterKind
		want []Decision
	}{
		{
			name: "sub-action escalates into round failures",
			kind: SubActionFailure,
			want: []Decision{
				RetryStage, RetryStage, RecoverAndRetryRound,
				RetryStage, RetryStage, RecoverAndRetryRound,
				RetryStage, RetryStage, AbortAttempt,
			},
		},
		{
			name: "round attempt aborts at ceiling",
			kind: RoundAttemptFailure,
			want: []Decision{RetryRound, RetryRound, AbortAttempt, AbortAttempt},
		},
		{
			name: "trigger timeout requests restart",
			kind: TriggerTimeout,
			want: []Decision{RetryStage, RetryStage, RequestRestart, RequestRestart},
		},
		{
			name: "process restart aborts at ceiling",
			kind: ProcessRestart,
			want: []Decision{RequestRestart, RequestRestart, AbortAttempt},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newController(threes)
			var got []Decision
			for range tt.want {
				got = append(got, c.OnFailure(tt.kind))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEscalation_CountersNeverPassCeiling(t *testing.T) {
	c, state, rec := newController(threes)

	for i := 0; i < 10; i++ {
		c.OnFailure(TriggerTimeout)
	}
	assert.Equal(t, 3, state.Counter(TriggerTimeout))
	assert.Equal(t, 2, state.Counter(SubActionFailure))
	assert.Equal(t, 0, state.Counter(RoundAttemptFailure))

	// Only real increments reach the observer.
	assert.Len(t, rec.failures, 5)
}

func TestEscalation_TriggerTimeoutCountsSubAction(t *testing.T) {
	c, state, _ := newController(Ceilings{SubActionFailure: 1, RoundAttemptFailure: 3, TriggerTimeout: 3, ProcessRestart: 3})

	assert.Equal(t, RecoverAndRetryRound, c.OnFailure(TriggerTimeout))
	assert.Equal(t, 0, state.Counter(TriggerTimeout), "hand-off clears the trigger streak")
	assert.Equal(t, 0, state.Counter(SubActionFailure))
	assert.Equal(t, 1, state.Counter(RoundAttemptFailure))
}

func TestEscalation_HandOffEscalatesOnce(t *testing.T) {
	c, state, rec := newController(threes)

	for i := 0; i < 3; i++ {
		c.OnFailure(SubActionFailure)
	}
	assert.Equal(t, 0, state.Counter(SubActionFailure))
	assert.Equal(t, 1, state.Counter(RoundAttemptFailure))

	// A trigger miss right after recovery is retried in place.
	assert.Equal(t, RetryStage, c.OnFailure(TriggerTimeout))
	assert.Equal(t, RetryStage, c.OnFailure(SubActionFailure))
	assert.Equal(t, 1, state.Counter(TriggerTimeout))
	assert.Equal(t, 2, state.Counter(SubActionFailure))
	assert.Equal(t, 1, state.Counter(RoundAttemptFailure))
	assert.Equal(t, []string{
		"sub_action_failure:retry_stage",
		"sub_action_failure:retry_stage",
		"sub_action_failure:recover_and_retry_round",
		"trigger_timeout:retry_stage",
		"sub_action_failure:retry_stage",
	}, rec.decisions)
}

func TestEscalation_OnSuccessEndsStreak(t *testing.T) {
	c, state, _ := newController(threes)

	// Two trigger failures per round for three rounds never restarts.
	for round := 0; round < 3; round++ {
		assert.Equal(t, RetryStage, c.OnFailure(TriggerTimeout))
		assert.Equal(t, RetryStage, c.OnFailure(TriggerTimeout))
		c.OnSuccess(TriggerTimeout, SubActionFailure)
	}
	assert.Equal(t, 0, state.Counter(TriggerTimeout))

	c.OnFailure(RoundAttemptFailure)
	c.OnSuccess()
	assert.Equal(t, 1, state.Counter(RoundAttemptFailure))
	c.OnSuccess(RoundAttemptFailure)
	assert.Equal(t, 0, state.Counter(RoundAttemptFailure))
}

func TestEscalation_ReportsDecisions(t *testing.T) {
	c, _, rec := newController(threes)

	c.OnFailure(SubActionFailure)
	c.OnFailure(RoundAttemptFailure)

	require.Len(t, rec.decisions, 2)
	assert.Equal(t, "sub_action_failure:retry_stage", rec.decisions[0])
	assert.Equal(t, "round_attempt_failure:retry_round", rec.decisions[1])
	assert.Equal(t, []string{"sub_action_failure", "round_attempt_failure"}, rec.failures)
}

func TestCeilings(t *testing.T) {
	var zero Ceilings
	for k := CounterKind(0); k < numCounterKinds; k++ {
		assert.Equal(t, 1, zero.of(k), k.String())
	}

	c, _, _ := newController(zero)
	assert.Equal(t, AbortAttempt, c.OnFailure(SubActionFailure), "ceiling of one cascades at once")
}

func TestCeilingError(t *testing.T) {
	cause := errors.New("boom")
	err := &CeilingError{Kind: TriggerTimeout, Ceiling: 3, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "trigger_timeout ceiling (3) reached: boom", err.Error())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "recover_and_retry_round", RecoverAndRetryRound.String())
	assert.Equal(t, "decision(42)", Decision(42).String())
	assert.Equal(t, "counter(9)", CounterKind(9).String())
	assert.Equal(t, "restart_requested", RestartRequested.String())
	assert.Equal(t, "unknown", AttemptResult(7).String())
}
