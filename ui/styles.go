package ui

import "github.com/charmbracelet/lipgloss"

const ellipsis = "…"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#6B50FF")).
			Padding(0, 1)

	currentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F1F1F1"})

	previousStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#5C5C5C"})

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}).
			Background(lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"})

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"})

	// Status icon colors by state.
	loadingColor = lipgloss.Color("214")
	playingColor = lipgloss.Color("42")
	stoppedColor = lipgloss.Color("241")
)
