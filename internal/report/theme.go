package report

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Success   = lipgloss.Color("#22C55E") // Green
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	bodyStyle = lipgloss.NewStyle().
			Foreground(Text)

	dimStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	doneStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	filledStyle = lipgloss.NewStyle().
			Background(Secondary)

	emptyStyle = lipgloss.NewStyle().
			Background(Border)
)
