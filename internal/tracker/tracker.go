// Package tracker persists the progress of a run under the state directory
// so that `stagehand status` and outside tooling can follow it.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Writer owns the files in the state directory.
type Writer struct {
	Dir          string
	RunStatePath string
	HistoryPath  string
	LockPath     string
}

// NewWriter lays out the state files under dir.
func NewWriter(dir string) *Writer {
	return &Writer{
		Dir:          dir,
		RunStatePath: filepath.Join(dir, "run_state.json"),
		HistoryPath:  filepath.Join(dir, "history.json"),
		LockPath:     filepath.Join(dir, "stagehand.lock"),
	}
}

// EnsureDir creates the state directory.
func (w *Writer) EnsureDir() error {
	return os.MkdirAll(w.Dir, 0o755)
}

// WriteRunState replaces run_state.json atomically.
func (w *Writer) WriteRunState(s RunState) error {
	return writeJSONAtomic(w.RunStatePath, s)
}

// LoadRunState reads run_state.json. A missing or corrupt file yields nil.
func (w *Writer) LoadRunState() (*RunState, error) {
	var rs RunState
	ok, err := readJSON(w.RunStatePath, &rs)
	if !ok || err != nil {
		return nil, err
	}
	return &rs, nil
}

// readJSON decodes path into v. It reports false without an error when the
// file is missing or does not decode.
func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, nil
	}
	return true, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
