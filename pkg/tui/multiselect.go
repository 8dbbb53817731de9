package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	multiSelectPlaceholder = "Select options"
	multiSelectMinWidth    = 16
)

// Option is one choice of a MultiSelect. Render draws it in the trigger and
// the dropdown; a nil Render falls back to Value.
type Option struct {
	Value  string
	Render func() string
}

func (o Option) view() string {
	if o.Render == nil {
		return o.Value
	}
	return o.Render()
}

// SelectionUpdate replaces a selected-value list with a new one
type SelectionUpdate func(prev []string) []string

// ToggleValue returns the update that adds value when absent and removes it
// when present, leaving every other value in place.
func ToggleValue(value string) SelectionUpdate {
	return func(prev []string) []string {
		out := make([]string, 0, len(prev)+1)
		found := false
		for _, v := range prev {
			if v == value {
				found = true
				continue
			}
			out = append(out, v)
		}
		if !found {
			out = append(out, value)
		}
		return out
	}
}

// MultiSelect is a controlled dropdown with checkboxes. The owner keeps the
// selected values and passes them to Update and View; Update returns the
// change to apply, if any.
type MultiSelect struct {
	Label   string
	Options []Option

	open    bool
	cursor  int
	width   int
	focused bool
}

// NewMultiSelect creates a closed control
func NewMultiSelect(label string, options []Option) *MultiSelect {
	return &MultiSelect{Label: label, Options: options, width: multiSelectMinWidth}
}

// SetWidth sets the rendered width of both trigger and dropdown
func (m *MultiSelect) SetWidth(w int) {
	if w < multiSelectMinWidth {
		w = multiSelectMinWidth
	}
	m.width = w
}

// Width returns the rendered width
func (m *MultiSelect) Width() int { return m.width }

// Focus marks the control as receiving keys
func (m *MultiSelect) Focus() { m.focused = true }

// Blur removes focus and closes the dropdown
func (m *MultiSelect) Blur() {
	m.focused = false
	m.open = false
}

// IsOpen reports whether the dropdown is shown
func (m *MultiSelect) IsOpen() bool { return m.open }

// Update handles a key while focused. The returned update is nil when the
// key did not change the selection.
func (m *MultiSelect) Update(msg tea.KeyMsg) SelectionUpdate {
	if !m.focused {
		return nil
	}

	if !m.open {
		switch msg.String() {
		case "enter", " ", "down", "j":
			m.open = true
			m.clampCursor()
		}
		return nil
	}

	switch msg.String() {
	case "esc":
		m.open = false
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.Options)-1 {
			m.cursor++
		}
	case "enter", " ", "x":
		if len(m.Options) == 0 {
			return nil
		}
		m.clampCursor()
		return ToggleValue(m.Options[m.cursor].Value)
	}
	return nil
}

func (m *MultiSelect) clampCursor() {
	if m.cursor >= len(m.Options) {
		m.cursor = len(m.Options) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *MultiSelect) frame() lipgloss.Style {
	border := ColorMuted
	if m.focused {
		border = ColorPrimary
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(m.width - 2)
}

// Trigger renders the closed control: placeholder or the selected options
// in option order.
func (m *MultiSelect) Trigger(selected []string) string {
	chosen := make(map[string]bool, len(selected))
	for _, v := range selected {
		chosen[v] = true
	}

	var parts []string
	for _, o := range m.Options {
		if chosen[o.Value] {
			parts = append(parts, o.view())
		}
	}

	content := StyleSubtle.Render(multiSelectPlaceholder)
	if len(parts) > 0 {
		content = strings.Join(parts, " ")
	}

	label := m.Label + " " + IconCaret
	if m.focused {
		label = StyleFocused.Render(label)
	} else {
		label = StyleSubtle.Render(label)
	}
	return m.frame().Render(label + "\n" + content)
}

// Dropdown renders the open option list, or "" when closed or empty
func (m *MultiSelect) Dropdown(selected []string) string {
	if !m.open || len(m.Options) == 0 {
		return ""
	}

	chosen := make(map[string]bool, len(selected))
	for _, v := range selected {
		chosen[v] = true
	}

	rows := make([]string, 0, len(m.Options))
	for i, o := range m.Options {
		box := IconCheckOff
		if chosen[o.Value] {
			box = IconCheckOn
		}
		row := box + " " + o.view()
		if i == m.cursor {
			row = IconCursor + " " + row
		} else {
			row = "  " + row
		}
		rows = append(rows, row)
	}
	return m.frame().Render(strings.Join(rows, "\n"))
}

// View renders the trigger with the dropdown beneath it when open
func (m *MultiSelect) View(selected []string) string {
	trigger := m.Trigger(selected)
	if dd := m.Dropdown(selected); dd != "" {
		return lipgloss.JoinVertical(lipgloss.Left, trigger, dd)
	}
	return trigger
}
