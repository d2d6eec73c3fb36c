package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// Lock is the content of the lock file.
type Lock struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	RunID     string    `json:"run_id"`
}

// ErrLockHeld means another live process owns the state directory.
var ErrLockHeld = errors.New("stagehand lock is held")

// AcquireLock claims the state directory for runID. Only one run may drive a
// target from a given state directory. A lock left by a dead process is
// taken over.
func (w *Writer) AcquireLock(runID string) (release func() error, err error) {
	return w.acquire(runID, true)
}

func (w *Writer) acquire(runID string, retryStale bool) (func() error, error) {
	l := Lock{PID: os.Getpid(), StartedAt: time.Now(), RunID: runID}
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(w.LockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, err
		}
		existing, ok := w.ReadLock()
		if ok && existing.PID > 0 {
			if processAlive(existing.PID) {
				return nil, fmt.Errorf("%w by pid %d (run_id=%s)", ErrLockHeld, existing.PID, existing.RunID)
			}
			if retryStale && os.Remove(w.LockPath) == nil {
				return w.acquire(runID, false)
			}
		}
		return nil, fmt.Errorf("%w (lock file exists)", ErrLockHeld)
	}

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(w.LockPath)
		return nil, err
	}

	return func() error { return os.Remove(w.LockPath) }, nil
}

// ReadLock returns the current lock holder, if any.
func (w *Writer) ReadLock() (Lock, bool) {
	var l Lock
	ok, err := readJSON(w.LockPath, &l)
	return l, ok && err == nil
}

// processAlive uses signal 0 to check that pid exists.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
