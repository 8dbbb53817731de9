// Package tui is the terminal dashboard: project list, project page with
// filterable multi-select vulnerability table, vulnerability detail and the
// create-project form.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorHigh      = lipgloss.Color("#F97316") // Orange
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorText      = lipgloss.Color("#E5E7EB")
)

// Common styles
var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleHeading = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	StyleSubtle = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleError  = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF"))

	StyleFocused = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleButton = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#6366F1")).
			Padding(0, 2)

	StyleButtonDisabled = lipgloss.NewStyle().
				Foreground(ColorMuted).
				Background(lipgloss.Color("#374151")).
				Padding(0, 2)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHighlightLine = lipgloss.NewStyle().
				Background(lipgloss.Color("#7F1D1D")).
				Foreground(lipgloss.Color("#FFFFFF"))
)

// Icons
const (
	IconCheckOn  = "[x]"
	IconCheckOff = "[ ]"
	IconCaret    = "▾"
	IconCursor   = "❯"
)
