// Package status draws a live, in-place progress line for a run.
package status

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ANSI cursor control for in-place updates.
const (
	clearLine  = "\033[2K"
	moveUp     = "\033[A"
	moveToCol0 = "\r"
)

// Progress bar characters
const (
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 20
)

type styles struct {
	filled  lipgloss.Style
	empty   lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	failure lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		filled:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
		empty:   r.NewStyle().Faint(true),
		dim:     r.NewStyle().Faint(true),
		bold:    r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
		failure: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).Bold(true),
	}
}

// Writer handles in-place status updates to the terminal. It implements
// engine.StatusReporter.
type Writer struct {
	w            io.Writer
	st           styles
	quiet        bool
	mu           sync.Mutex
	linesWritten int

	attempt, maxAttempts int
	round, maxRounds     int
	stage                string
	note                 string
}

// New creates a status writer that outputs to stdout.
func New() *Writer {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a status writer with a custom output.
func NewWithWriter(w io.Writer) *Writer {
	return &Writer{w: w, st: newStyles(lipgloss.NewRenderer(w))}
}

// NewQuiet creates a writer that only prints the final outcome.
func NewQuiet(w io.Writer) *Writer {
	s := NewWithWriter(w)
	s.quiet = true
	return s
}

// Clear erases any previously written status lines.
func (s *Writer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Writer) clearLocked() {
	for i := 0; i < s.linesWritten; i++ {
		fmt.Fprint(s.w, moveUp+clearLine)
	}
	if s.linesWritten > 0 {
		fmt.Fprint(s.w, moveToCol0)
	}
	s.linesWritten = 0
}

func (s *Writer) writeLocked(persist bool, lines ...string) {
	s.clearLocked()
	for _, line := range lines {
		fmt.Fprintln(s.w, line)
	}
	if !persist {
		s.linesWritten = len(lines)
	}
}

// progressBar renders completed out of total.
func (s *Writer) progressBar(completed, total int) string {
	filled := 0
	if total > 0 {
		filled = min((completed*barWidth)/total, barWidth)
	}
	return s.st.filled.Render(strings.Repeat(barFilled, filled)) +
		s.st.empty.Render(strings.Repeat(barEmpty, barWidth-filled))
}

func (s *Writer) lineLocked() string {
	done := s.round - 1
	if done < 0 {
		done = 0
	}
	line := fmt.Sprintf("%s %s", s.progressBar(done, s.maxRounds),
		s.st.dim.Render(fmt.Sprintf("%d/%d", done, s.maxRounds)))
	if s.maxAttempts > 1 && s.attempt > 1 {
		line += " " + s.st.warn.Render(fmt.Sprintf("attempt %d/%d", s.attempt, s.maxAttempts))
	}
	if s.stage != "" {
		line += " " + s.st.bold.Render(s.stage)
	}
	if s.note != "" {
		line += " " + s.st.dim.Render(s.note)
	}
	return line
}

// Attempt shows that attempt of maxAttempts is starting.
func (s *Writer) Attempt(attempt, maxAttempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt, s.maxAttempts = attempt, maxAttempts
	s.round, s.stage, s.note = 0, "", ""
	if s.quiet {
		return
	}
	s.writeLocked(false, s.lineLocked())
}

// Stage shows the stage being run.
func (s *Writer) Stage(round, maxRounds int, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if round != s.round {
		s.note = ""
	}
	s.round, s.maxRounds, s.stage = round, maxRounds, stage
	if s.quiet {
		return
	}
	s.writeLocked(false, s.lineLocked())
}

// Note shows a short message next to the current stage.
func (s *Writer) Note(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.note = msg
	if s.quiet {
		return
	}
	s.writeLocked(false, s.lineLocked())
}

// Complete shows that every round finished.
func (s *Writer) Complete(rounds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(true,
		fmt.Sprintf("%s %s", s.progressBar(rounds, rounds), s.st.dim.Render(fmt.Sprintf("%d/%d", rounds, rounds))),
		s.st.success.Render("✓ Complete"),
	)
}

// Restarting shows the backoff before a fresh attempt.
func (s *Writer) Restarting(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiet {
		return
	}
	s.writeLocked(false, s.st.warn.Render("⟳ restarting: "+reason))
}

// Error shows a failed run. The lines are left on screen.
func (s *Writer) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := []string{s.st.failure.Render("✗ Run failed")}
	if s.stage != "" {
		lines[0] = s.st.failure.Render(fmt.Sprintf("✗ Run failed in %s (round %d/%d)", s.stage, s.round, s.maxRounds))
	}
	if err != nil {
		lines = append(lines, s.st.dim.Render(err.Error()))
	}
	s.writeLocked(true, lines...)
}
