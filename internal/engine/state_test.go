package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunState_Restart(t *testing.T) {
	s := NewRunState(2)

	_, ok := s.takeRestart()
	assert.False(t, ok)

	s.noteRestartReason(ReasonTriggerReady)
	assert.Empty(t, s.RestartReason(), "reason must not change without a pending request")

	s.RequestRestart(ReasonContinueClicked)
	s.RequestRestart(ReasonContinueClicked)
	assert.True(t, s.RestartRequested())

	s.noteRestartReason(ReasonTriggerReady)
	reason, ok := s.takeRestart()
	require.True(t, ok)
	assert.Equal(t, ReasonTriggerReady, reason)
	assert.False(t, s.RestartRequested())

	_, ok = s.takeRestart()
	assert.False(t, ok, "two requests are cleared by one take")
}

func TestRunState_Finished(t *testing.T) {
	s := NewRunState(2)
	assert.False(t, s.Finished())

	s.completeRound()
	assert.False(t, s.Finished())
	s.completeRound()
	assert.True(t, s.Finished())

	other := NewRunState(0)
	assert.Equal(t, 1, other.MaxRounds())
	other.Terminate()
	other.Terminate()
	assert.True(t, other.Finished())
	select {
	case <-other.TerminatedChan():
	default:
		t.Fatal("terminated channel not closed")
	}
}

func TestRunState_Bump(t *testing.T) {
	s := NewRunState(1)

	for i := 1; i <= 3; i++ {
		n, ok := s.bump(SubActionFailure, 3)
		assert.True(t, ok)
		assert.Equal(t, i, n)
	}
	n, ok := s.bump(SubActionFailure, 3)
	assert.False(t, ok)
	assert.Equal(t, 3, n)

	s.reset(SubActionFailure)
	assert.Equal(t, 0, s.Counter(SubActionFailure))
	assert.Equal(t, map[string]int{
		"sub_action_failure":    0,
		"round_attempt_failure": 0,
		"trigger_timeout":       0,
		"process_restart":       0,
	}, s.Counters())
}

func TestRunState_BumpConcurrent(t *testing.T) {
	s := NewRunState(1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.bump(RoundAttemptFailure, 10)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, s.Counter(RoundAttemptFailure))
}

func TestRunState_Sleep(t *testing.T) {
	tests := []struct {
		name          string
		interruptible bool
		act           func(s *RunState)
		cancel        bool
		want          error
	}{
		{name: "elapses", want: nil},
		{name: "terminate wakes", act: func(s *RunState) { s.Terminate() }, want: ErrTerminated},
		{
			name:          "restart wakes interruptible",
			interruptible: true,
			act:           func(s *RunState) { s.RequestRestart(ReasonContinueClicked) },
			want:          ErrRestartRequested,
		},
		{name: "context cancel", cancel: true, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRunState(1)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			d := 20 * time.Millisecond
			if tt.act != nil || tt.cancel {
				d = time.Minute
				go func() {
					time.Sleep(5 * time.Millisecond)
					if tt.act != nil {
						tt.act(s)
					}
					if tt.cancel {
						cancel()
					}
				}()
			}

			start := time.Now()
			err := s.Sleep(ctx, d, tt.interruptible)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
				assert.Less(t, time.Since(start), 10*time.Second)
			}
		})
	}
}

func TestRunState_SleepIgnoresRestartWhenNotInterruptible(t *testing.T) {
	s := NewRunState(1)
	s.RequestRestart(ReasonContinueClicked)

	err := s.Sleep(context.Background(), 10*time.Millisecond, false)
	assert.NoError(t, err)
	assert.True(t, s.RestartRequested(), "sleep must not clear the flag")
}

func TestRunState_SleepZero(t *testing.T) {
	s := NewRunState(1)
	assert.NoError(t, s.Sleep(context.Background(), 0, true))

	s.RequestRestart(ReasonContinueClicked)
	assert.ErrorIs(t, s.Sleep(context.Background(), 0, true), ErrRestartRequested)
}
