// Package tui renders the debugger dashboard with Bubble Tea.
//
// One fullscreen model owns every pane; all data comes from
// session.Snapshot copies taken per tick, so rendering never races
// the protocol engine.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for dashboard panes.
var (
	// TitleStyle for pane headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// LabelStyle for register and frame labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// ValueStyle for plain values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// ChangedStyle marks registers that moved since the last stop.
	ChangedStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	// RunningStyle for the running execution state.
	RunningStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// StoppedStyle for the stopped execution state.
	StoppedStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ExitedStyle for the terminal execution state.
	ExitedStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// MatchStyle highlights search hits in the hexdump pane.
	MatchStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	// BoxStyle for bordered panes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// HelpStyle for the key hint line.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// ErrorStyle for inline diagnostics.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// StateStyle picks the style for an execution state label.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "running":
		return RunningStyle
	case "stopped":
		return StoppedStyle
	case "exited":
		return ExitedStyle
	default:
		return LabelStyle
	}
}
