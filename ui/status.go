package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/narrate/internal/narration"
)

// statusIcon returns a colored glyph for the narration state.
func statusIcon(s narration.State) string {
	switch s {
	case narration.StateLoading:
		return lipgloss.NewStyle().Foreground(loadingColor).Render("◌")
	case narration.StatePlaying:
		return lipgloss.NewStyle().Foreground(playingColor).Render("▶")
	default:
		return lipgloss.NewStyle().Foreground(stoppedColor).Render("■")
	}
}

// progress describes how far through the session narration is.
func progress(s narration.Snapshot) string {
	switch s.State {
	case narration.StatePlaying:
		done := s.Units - s.Outstanding
		return fmt.Sprintf("%s %d/%d units · phrase %d/%d", s.State, done, s.Units, s.Pointer, s.Phrases)
	case narration.StateLoading:
		return "preparing"
	default:
		return s.State.String()
	}
}

// statusBar renders a single line exactly width cells wide.
func statusBar(s narration.Snapshot, message string, width int) string {
	left := " " + statusIcon(s.State) + " " + progress(s)
	if message != "" {
		left += "  " + statusMessageStyle.Render(message)
	}
	right := "s stop · r restart · c copy · q quit "

	gap := width - lipgloss.Width(left) - runewidth.StringWidth(right)
	if gap < 1 {
		return statusBarStyle.Render(truncate.StringWithTail(left, uint(max(width, 0)), ellipsis)) //nolint:gosec
	}
	return statusBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}
