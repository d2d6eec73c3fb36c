package tracker

import "time"

// History accumulates totals across every run in a state directory.
type History struct {
	FirstRunAt     time.Time      `json:"first_run_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	LastCompletion *time.Time     `json:"last_completion,omitempty"`
	Runs           int            `json:"runs"`
	Attempts       int            `json:"attempts"`
	Rounds         int            `json:"rounds"`
	Results        map[string]int `json:"results,omitempty"`
	LastRunID      string         `json:"last_run_id,omitempty"`
	LastResult     string         `json:"last_result,omitempty"`
}

// LoadHistory reads history.json; nil when absent or corrupt.
func (w *Writer) LoadHistory() (*History, error) {
	var h History
	ok, err := readJSON(w.HistoryPath, &h)
	if !ok || err != nil {
		return nil, err
	}
	return &h, nil
}

// SaveHistory replaces history.json atomically.
func (w *Writer) SaveHistory(h *History) error {
	return writeJSONAtomic(w.HistoryPath, h)
}

// StartRun counts a new run.
func (w *Writer) StartRun(runID string) error {
	return w.updateHistory(runID, func(h *History) { h.Runs++ })
}

// RecordAttempt adds a finished attempt to the totals.
func (w *Writer) RecordAttempt(runID, result string, rounds int) error {
	return w.updateHistory(runID, func(h *History) {
		h.Attempts++
		h.Rounds += rounds
		if h.Results == nil {
			h.Results = make(map[string]int)
		}
		h.Results[result]++
		h.LastResult = result
		if result == StatusCompleted {
			now := time.Now()
			h.LastCompletion = &now
		}
	})
}

func (w *Writer) updateHistory(runID string, fn func(h *History)) error {
	h, err := w.LoadHistory()
	if err != nil {
		return err
	}
	now := time.Now()
	if h == nil {
		h = &History{FirstRunAt: now}
	}
	fn(h)
	h.UpdatedAt = now
	h.LastRunID = runID
	return w.SaveHistory(h)
}
