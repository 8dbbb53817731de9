package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/state"
)

// renderBar draws a horizontal bar of width cells filled to value/max
func renderBar(value, max float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if max <= 0 {
		max = 1
	}
	ratio := value / max
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(width))
	if value > 0 && filled == 0 {
		filled = 1
	}

	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		StyleSubtle.Render(strings.Repeat("░", width-filled))
}

// SeverityChart renders one bar per severity bucket, scaled to the largest
func SeverityChart(counts []state.SeverityCount, width int) string {
	maxCount, total := 0, 0
	for _, c := range counts {
		total += c.Count
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	barWidth := width - 20
	if barWidth < 10 {
		barWidth = 10
	}

	rows := []string{StyleHeading.Render(fmt.Sprintf("Findings by severity (%d)", total))}
	for _, c := range counts {
		label := fmt.Sprintf("%-9s", c.Severity)
		bar := renderBar(float64(c.Count), float64(maxCount), barWidth, SeverityColor(c.Severity))
		rows = append(rows, fmt.Sprintf("%s %s %3d", label, bar, c.Count))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
