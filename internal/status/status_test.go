package status

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chr1sbest/stagehand/internal/engine"
)

var _ engine.StatusReporter = (*Writer)(nil)

func TestWriterStageLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)

	s.Attempt(1, 10)
	s.Stage(3, 5, "burst")
	s.Note("retrying burst")

	out := buf.String()
	for _, want := range []string{"2/5", "burst", "retrying burst", barFilled, barEmpty} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "attempt") {
		t.Errorf("first attempt should not be called out:\n%s", out)
	}
	if !strings.Contains(out, moveUp+clearLine) {
		t.Errorf("expected in-place updates:\n%s", out)
	}
}

func TestWriterRetryAttempt(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)

	s.Attempt(2, 10)
	s.Stage(1, 1, "trigger")

	if !strings.Contains(buf.String(), "attempt 2/10") {
		t.Errorf("missing attempt:\n%s", buf.String())
	}
}

func TestWriterNoteClearedOnNewRound(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)
	s.Stage(1, 2, "trigger")
	s.Note("retrying trigger")
	s.Stage(2, 2, "trigger")

	if got := s.lineLocked(); strings.Contains(got, "retrying") {
		t.Errorf("note survived a new round: %q", got)
	}
}

func TestWriterQuiet(t *testing.T) {
	var buf bytes.Buffer
	s := NewQuiet(&buf)

	s.Attempt(1, 1)
	s.Stage(1, 2, "burst")
	s.Note("anything")
	s.Restarting("trigger timeout")
	if buf.Len() != 0 {
		t.Fatalf("quiet writer printed progress:\n%s", buf.String())
	}

	s.Complete(2)
	if !strings.Contains(buf.String(), "Complete") {
		t.Errorf("quiet writer must still print the outcome:\n%s", buf.String())
	}
}

func TestWriterError(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)
	s.Stage(2, 3, "completion")
	s.Error(errors.New("success marker never appeared"))

	out := buf.String()
	if !strings.Contains(out, "Run failed in completion (round 2/3)") || !strings.Contains(out, "success marker never appeared") {
		t.Errorf("unexpected error output:\n%s", out)
	}

	// Error lines persist: the next update must not erase them.
	before := buf.Len()
	s.Clear()
	if buf.Len() != before {
		t.Errorf("Clear erased persisted lines")
	}
}

func TestProgressBar(t *testing.T) {
	s := NewWithWriter(&bytes.Buffer{})
	tests := []struct {
		completed, total, filled int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{2, 4, barWidth / 2},
		{4, 4, barWidth},
		{9, 4, barWidth},
	}
	for _, tt := range tests {
		bar := s.progressBar(tt.completed, tt.total)
		if got := strings.Count(bar, barFilled); got != tt.filled {
			t.Errorf("progressBar(%d, %d) filled %d, want %d", tt.completed, tt.total, got, tt.filled)
		}
		if got := strings.Count(bar, barFilled) + strings.Count(bar, barEmpty); got != barWidth {
			t.Errorf("progressBar(%d, %d) width %d", tt.completed, tt.total, got)
		}
	}
}
