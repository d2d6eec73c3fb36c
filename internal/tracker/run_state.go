package tracker

import "time"

// Run statuses.
const (
	StatusStarting   = "starting"
	StatusRunning    = "running"
	StatusRestarting = "restarting"
	StatusCompleted  = "completed"
	StatusAborted    = "aborted"
	StatusStopped    = "stopped"
)

// RunState is the on-disk picture of a run, rewritten as it progresses.
// Failures counts every failure of the current attempt; Counters holds the
// escalation counters as they stood when the last attempt ended.
type RunState struct {
	RunID           string         `json:"run_id"`
	PID             int            `json:"pid"`
	StartedAt       time.Time      `json:"started_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	AttemptID       string         `json:"attempt_id,omitempty"`
	Attempt         int            `json:"attempt"`
	MaxAttempts     int            `json:"max_attempts"`
	Round           int            `json:"round,omitempty"`
	RoundsCompleted int            `json:"rounds_completed"`
	MaxRounds       int            `json:"max_rounds"`
	Stage           string         `json:"stage,omitempty"`
	StageStartedAt  time.Time      `json:"stage_started_at,omitempty"`
	Status          string         `json:"status"`
	LastResult      string         `json:"last_result,omitempty"`
	RestartReason   string         `json:"restart_reason,omitempty"`
	Counters        map[string]int `json:"counters,omitempty"`
	Failures        map[string]int `json:"failures,omitempty"`
	LastNote        string         `json:"last_note,omitempty"`
	LastError       string         `json:"last_error,omitempty"`
}

// Terminal reports whether the run has ended.
func (s RunState) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusAborted, StatusStopped:
		return true
	}
	return false
}
