package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/vuln"
)

var severityColors = map[vuln.Severity]lipgloss.Color{
	vuln.SeverityLow:      ColorSuccess,
	vuln.SeverityMedium:   ColorWarning,
	vuln.SeverityHigh:     ColorHigh,
	vuln.SeverityCritical: ColorDanger,
}

// SeverityColor returns the tier color, gray for unknown tiers
func SeverityColor(s vuln.Severity) lipgloss.Color {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return ColorMuted
}

// SeverityBadge renders "● high" in the tier color
func SeverityBadge(s vuln.Severity) string {
	label := string(s)
	if !s.Known() {
		if label == "" {
			label = "unknown"
		}
		label = "? " + label
	} else {
		label = "● " + label
	}
	return lipgloss.NewStyle().Foreground(SeverityColor(s)).Render(label)
}

type statusLook struct {
	icon     string
	color    lipgloss.Color
	animated bool
}

var statusLooks = map[vuln.Status]statusLook{
	vuln.StatusNotStarted: {"○", ColorMuted, false},
	vuln.StatusDetected:   {"⚠", ColorWarning, false},
	vuln.StatusQueued:     {"◷", ColorSecondary, true},
	vuln.StatusPending:    {"⚗", ColorSecondary, true},
	vuln.StatusProcessing: {"◐", ColorPrimary, true},
	vuln.StatusCompleted:  {"✔", ColorSuccess, false},
	vuln.StatusFinished:   {"✔", ColorSuccess, false},
	vuln.StatusFailed:     {"✖", ColorDanger, false},
}

// StatusBadge renders the status icon and label. In-progress statuses use
// spin (the current spinner frame) as their icon when it is non-empty.
func StatusBadge(s vuln.Status, spin string) string {
	label := strings.ReplaceAll(string(s), "_", " ")
	look, ok := statusLooks[s]
	if !ok {
		if label == "" {
			label = "unknown"
		}
		return StyleSubtle.Render("? " + label)
	}

	icon := look.icon
	if look.animated && spin != "" {
		icon = spin
	}
	return lipgloss.NewStyle().Foreground(look.color).Render(icon + " " + label)
}

// IndexingBadge renders the indexing job state
func IndexingBadge(s vuln.IndexingStatus, spin string) string {
	return StatusBadge(vuln.Status(s), spin)
}

// FileBadge renders a file-location tag, or nothing when empty
func FileBadge(fileKey string) string {
	if fileKey == "" {
		return ""
	}
	return StyleSubtle.Render("⎘ " + truncate(fileKey, 32))
}

func truncate(s string, max int) string {
	if max <= 3 || lipgloss.Width(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
