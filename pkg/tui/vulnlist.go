package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/state"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// ListAction is what a key pressed on the list asks the page to do
type ListAction int

const (
	ListNone ListAction = iota
	ListToggleRow
	ListToggleAll
	ListOpen
)

// ListIntent pairs an action with the row it applies to
type ListIntent struct {
	Action ListAction
	ID     string
}

// VulnList renders the filtered vulnerabilities as rows with checkboxes
type VulnList struct {
	cursor  int
	offset  int
	height  int
	width   int
	focused bool
}

// NewVulnList creates an unfocused list
func NewVulnList() *VulnList {
	return &VulnList{height: 10, width: 80}
}

// SetSize sets the area available to rows
func (l *VulnList) SetSize(width, height int) {
	if height < 3 {
		height = 3
	}
	l.width = width
	l.height = height
}

func (l *VulnList) Focus()        { l.focused = true }
func (l *VulnList) Blur()         { l.focused = false }
func (l *VulnList) Focused() bool { return l.focused }

// Cursor returns the highlighted row index
func (l *VulnList) Cursor() int { return l.cursor }

func (l *VulnList) clamp(n int) {
	if l.cursor >= n {
		l.cursor = n - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.height {
		l.offset = l.cursor - l.height + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// Update handles a key against the visible rows
func (l *VulnList) Update(msg tea.KeyMsg, items []vuln.Vulnerability) ListIntent {
	if !l.focused {
		return ListIntent{}
	}

	switch msg.String() {
	case "up", "k":
		l.cursor--
	case "down", "j":
		l.cursor++
	case "pgup":
		l.cursor -= l.height
	case "pgdown":
		l.cursor += l.height
	case "home", "g":
		l.cursor = 0
	case "end", "G":
		l.cursor = len(items) - 1
	case "a":
		l.clamp(len(items))
		return ListIntent{Action: ListToggleAll}
	case " ", "x":
		l.clamp(len(items))
		if len(items) == 0 {
			return ListIntent{}
		}
		return ListIntent{Action: ListToggleRow, ID: items[l.cursor].ID}
	case "enter":
		l.clamp(len(items))
		if len(items) == 0 {
			return ListIntent{}
		}
		return ListIntent{Action: ListOpen, ID: items[l.cursor].ID}
	}
	l.clamp(len(items))
	return ListIntent{}
}

// HeaderChecked reports the header checkbox state for the visible rows
func HeaderChecked(items []vuln.Vulnerability, sel state.Selection) bool {
	return len(items) > 0 && sel.IsAllSelected(state.IDs(items))
}

func checkbox(on bool) string {
	if on {
		return StyleFocused.Render(IconCheckOn)
	}
	return IconCheckOff
}

// View renders the header and the rows in the current scroll window
func (l *VulnList) View(items []vuln.Vulnerability, sel state.Selection, spin string) string {
	l.clamp(len(items))

	header := fmt.Sprintf("  %s %s", checkbox(HeaderChecked(items, sel)),
		StyleHeading.Render(fmt.Sprintf("Vulnerabilities (%d shown, %d selected)", len(items), sel.Len())))
	rows := []string{header}

	if len(items) == 0 {
		rows = append(rows, StyleSubtle.Render("    No vulnerabilities match the current filters"))
		return strings.Join(rows, "\n")
	}

	end := l.offset + l.height
	if end > len(items) {
		end = len(items)
	}
	for i := l.offset; i < end; i++ {
		rows = append(rows, l.renderRow(items[i], sel.IsSelected(items[i].ID), i == l.cursor, spin))
	}
	if len(items) > l.height {
		rows = append(rows, StyleSubtle.Render(fmt.Sprintf("    %d-%d of %d", l.offset+1, end, len(items))))
	}
	return strings.Join(rows, "\n")
}

func (l *VulnList) renderRow(v vuln.Vulnerability, selected, current bool, spin string) string {
	cursor := "  "
	if current && l.focused {
		cursor = StyleFocused.Render(IconCursor) + " "
	}

	label := fmt.Sprintf("%-16s", truncate(v.Label(), 16))
	title := v.Title
	if w := l.width - 70; w > 10 {
		title = truncate(title, w)
	} else {
		title = truncate(title, 10)
	}
	if current && l.focused {
		label = StyleSelected.Render(label)
	}

	parts := []string{
		cursor + checkbox(selected),
		label,
		lipgloss.NewStyle().Width(12).Render(SeverityBadge(v.Severity)),
		lipgloss.NewStyle().Width(16).Render(StatusBadge(v.Status, spin)),
		title,
	}
	if fb := FileBadge(v.FileKey); fb != "" {
		parts = append(parts, fb)
	}
	return strings.Join(parts, " ")
}
