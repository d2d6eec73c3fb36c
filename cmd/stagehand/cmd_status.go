package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/chr1sbest/stagehand/internal/config"
	"github.com/chr1sbest/stagehand/internal/tracker"
)

func statusCmd(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	stateDir := fs.String("state-dir", config.DefaultStateDir, "Directory holding run_state.json")
	asJSON := fs.Bool("json", false, "Print the raw run state")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}
	return showStatus(*stateDir, *asJSON, os.Stdout, os.Stderr)
}

func showStatus(stateDir string, asJSON bool, stdout, stderr io.Writer) int {
	w := tracker.NewWriter(stateDir)
	st, err := w.LoadRunState()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read run state: %v\n", err)
		return exitFailure
	}
	if st == nil {
		fmt.Fprintf(stderr, "No run state in %s\n", stateDir)
		return exitFailure
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "    ")
		if err := enc.Encode(st); err != nil {
			fmt.Fprintln(stderr, err)
			return exitFailure
		}
		return exitOK
	}

	statusText := st.Status
	if !st.Terminal() {
		if l, ok := w.ReadLock(); !ok || l.RunID != st.RunID {
			statusText += " (no process holds the lock)"
		}
	}

	fmt.Fprintf(stdout, "Run:      %s (pid %d)\n", st.RunID, st.PID)
	fmt.Fprintf(stdout, "Status:   %s\n", statusText)
	fmt.Fprintf(stdout, "Attempt:  %d/%d\n", st.Attempt, st.MaxAttempts)
	fmt.Fprintf(stdout, "Rounds:   %d/%d\n", st.RoundsCompleted, st.MaxRounds)
	if st.Stage != "" {
		fmt.Fprintf(stdout, "Stage:    %s (round %d, %s)\n", st.Stage, st.Round, time.Since(st.StageStartedAt).Round(time.Second))
	}
	if st.LastResult != "" {
		fmt.Fprintf(stdout, "Last:     %s\n", st.LastResult)
	}
	if st.RestartReason != "" {
		fmt.Fprintf(stdout, "Restart:  %s\n", st.RestartReason)
	}
	if len(st.Failures) > 0 {
		fmt.Fprintf(stdout, "Failures: %s\n", formatCounts(st.Failures))
	}
	if st.LastNote != "" {
		fmt.Fprintf(stdout, "Note:     %s\n", st.LastNote)
	}
	if st.LastError != "" {
		fmt.Fprintf(stdout, "Error:    %s\n", st.LastError)
	}
	fmt.Fprintf(stdout, "Updated:  %s\n", st.UpdatedAt.Format(time.RFC3339))
	return exitOK
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
