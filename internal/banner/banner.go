// Package banner prints the startup summary of a run.
package banner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chr1sbest/stagehand/internal/config"
)

// Banner handles pretty startup output
type Banner struct {
	writer io.Writer
	width  int

	box   lipgloss.Style
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	dim   lipgloss.Style
}

// New creates a new Banner that writes to stdout
func New() *Banner {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a Banner with a custom writer (for testing)
func NewWithWriter(w io.Writer) *Banner {
	r := lipgloss.NewRenderer(w)
	return &Banner{
		writer: w,
		width:  60,
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
			Padding(0, 1),
		title: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#0000AA", Dark: "#5599FF"}),
		label: r.NewStyle().Faint(true),
		value: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008B8B", Dark: "#55FFFF"}),
		dim:   r.NewStyle().Faint(true),
	}
}

// Print displays the run plan for cfg.
func (b *Banner) Print(cfg *config.Config) {
	name := cfg.Name
	if name == "" {
		name = "stagehand"
	}

	lines := []string{b.title.Render(name)}
	if cfg.Description != "" {
		lines = append(lines, b.dim.Render(truncate(cfg.Description, b.width-4)))
	}
	lines = append(lines, "")

	rounds := cfg.GetMaxRounds()
	restarts := cfg.GetMaxRestarts()
	rows := [][2]string{
		{"rounds", fmt.Sprintf("%d round%s, up to %d attempt%s", rounds, pluralize(rounds), restarts, pluralize(restarts))},
		{"checkpoint", checkpoint(cfg.Checkpoint)},
		{"burst", fmt.Sprintf("%dx%d every %s", cfg.Burst.Outer, cfg.Burst.Inner, cfg.Burst.GetInterval())},
		{"ceilings", fmt.Sprintf("sub-action %d, round %d, trigger %d",
			cfg.GetSubActionFailureCeiling(), cfg.GetRoundAttemptFailureCeiling(), cfg.GetTriggerTimeoutCeiling())},
		{"driver", cfg.GetDriverName()},
		{"state", cfg.GetStateDir()},
	}
	if cfg.Telemetry.Listen != "" {
		rows = append(rows, [2]string{"telemetry", cfg.Telemetry.Listen})
	}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s %s", b.label.Render(fmt.Sprintf("%-11s", row[0])), b.value.Render(row[1])))
	}

	fmt.Fprintln(b.writer)
	fmt.Fprintln(b.writer, b.box.Render(strings.Join(lines, "\n")))
	fmt.Fprintln(b.writer)
}

func checkpoint(c config.CheckpointConfig) string {
	s := c.URL
	if c.Name != "" {
		s = c.Name + " " + s
	}
	if n := len(c.Entry); n > 0 {
		s += fmt.Sprintf(" (+%d entry step%s)", n, pluralize(n))
	}
	return s
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
