package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	colorPrimary = lipgloss.Color("#7C71F9")
	colorSuccess = lipgloss.Color("#34D399")
	colorError   = lipgloss.Color("#F87171")
	colorWarning = lipgloss.Color("#FBBF24")
	colorDim     = lipgloss.Color("#6B7280")
	colorAccent  = lipgloss.Color("#60A5FA")
)

var (
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)

	styleSpeakerUser      = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleSpeakerAssistant = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)

	styleRestored = lipgloss.NewStyle().Foreground(colorSuccess)
)

// disableStyling drops all colour output, used when stdout is not a terminal.
func disableStyling() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func styledError(msg string, hints ...string) string {
	out := styleError.Render(msg)
	for _, h := range hints {
		out += "\n  " + styleDim.Render(h)
	}
	return out
}

// budgetStyle colours a token count by how close it is to the limit.
func budgetStyle(total, limit int) lipgloss.Style {
	if limit <= 0 {
		return styleDim
	}

	pct := total * 100 / limit
	switch {
	case pct > 100:
		return styleError
	case pct > 80:
		return styleWarning
	default:
		return styleDim
	}
}
