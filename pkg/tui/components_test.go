package tui

import (
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/state"
	"github.com/vulndash/vulndash/pkg/vuln"
)

func TestToggleValue(t *testing.T) {
	tests := []struct {
		name  string
		prev  []string
		value string
		want  []string
	}{
		{"add to empty", nil, "a", []string{"a"}},
		{"add keeps others", []string{"a"}, "d", []string{"a", "d"}},
		{"remove middle", []string{"a", "b", "c"}, "b", []string{"a", "c"}},
		{"remove only", []string{"b"}, "b", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToggleValue(tt.value)(tt.prev); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToggleValue(%q)(%v) = %v, want %v", tt.value, tt.prev, got, tt.want)
			}
		})
	}
}

func TestToggleValueTwiceIsIdentity(t *testing.T) {
	prev := []string{"low", "high"}
	got := ToggleValue("medium")(ToggleValue("medium")(prev))
	if !reflect.DeepEqual(got, prev) {
		t.Errorf("double toggle = %v, want %v", got, prev)
	}
}

func letters() []Option {
	return []Option{{Value: "a"}, {Value: "b"}, {Value: "c"}}
}

func TestMultiSelectKeys(t *testing.T) {
	m := NewMultiSelect("Letters", letters())

	if upd := m.Update(key("enter")); upd != nil || m.IsOpen() {
		t.Fatal("unfocused control reacted to keys")
	}

	m.Focus()
	m.Update(key("enter"))
	if !m.IsOpen() {
		t.Fatal("enter did not open the dropdown")
	}

	m.Update(key("down"))
	upd := m.Update(key(" "))
	if upd == nil {
		t.Fatal("space on an option returned no update")
	}
	if got := upd([]string{"c"}); !reflect.DeepEqual(got, []string{"c", "b"}) {
		t.Errorf("update([c]) = %v, want [c b]", got)
	}

	m.Update(key("esc"))
	if m.IsOpen() {
		t.Error("esc did not close the dropdown")
	}
}

func TestMultiSelectTriggerOrder(t *testing.T) {
	m := NewMultiSelect("Letters", letters())

	if got := m.Trigger(nil); !strings.Contains(got, multiSelectPlaceholder) {
		t.Errorf("Trigger(nil) = %q, want placeholder", got)
	}

	got := m.Trigger([]string{"c", "a"})
	if !strings.Contains(got, "a c") {
		t.Errorf("Trigger([c a]) = %q, want options in option order", got)
	}
	if strings.Contains(got, multiSelectPlaceholder) {
		t.Errorf("Trigger([c a]) = %q, placeholder shown with a selection", got)
	}
}

func TestMultiSelectDropdownCheckboxes(t *testing.T) {
	m := NewMultiSelect("Letters", letters())
	m.SetWidth(30)
	m.Focus()
	m.Update(key("enter"))

	dd := m.Dropdown([]string{"b"})
	if !strings.Contains(dd, IconCheckOn+" b") {
		t.Errorf("dropdown = %q, want b checked", dd)
	}
	if !strings.Contains(dd, IconCheckOff+" a") || !strings.Contains(dd, IconCheckOff+" c") {
		t.Errorf("dropdown = %q, want a and c unchecked", dd)
	}
}

func TestMultiSelectDropdownTracksTriggerWidth(t *testing.T) {
	m := NewMultiSelect("Letters", letters())
	m.Focus()
	m.Update(key("enter"))

	for _, w := range []int{20, 33, 60, 24} {
		m.SetWidth(w)
		tw := lipgloss.Width(m.Trigger([]string{"a"}))
		dw := lipgloss.Width(m.Dropdown([]string{"a"}))
		if tw != w || dw != w {
			t.Errorf("width %d: trigger = %d, dropdown = %d", w, tw, dw)
		}
	}
}

func TestMultiSelectEmptyOptions(t *testing.T) {
	m := NewMultiSelect("Nothing", nil)
	m.Focus()
	m.Update(key("enter"))
	if upd := m.Update(key(" ")); upd != nil {
		t.Error("toggle with no options returned an update")
	}
	m.Update(key("down"))
	if dd := m.Dropdown(nil); dd != "" {
		t.Errorf("Dropdown = %q, want empty", dd)
	}
	if got := m.View(nil); !strings.Contains(got, multiSelectPlaceholder) {
		t.Errorf("View = %q, want placeholder", got)
	}
}

func TestSeverityBadge(t *testing.T) {
	for _, s := range vuln.Severities {
		if got := SeverityBadge(s); !strings.Contains(got, string(s)) {
			t.Errorf("SeverityBadge(%q) = %q", s, got)
		}
		if SeverityColor(s) == ColorMuted {
			t.Errorf("SeverityColor(%q) is the unknown color", s)
		}
	}

	if got := SeverityBadge(""); !strings.Contains(got, "unknown") {
		t.Errorf("SeverityBadge(\"\") = %q, want unknown", got)
	}
	if got := SeverityBadge("urgent"); !strings.Contains(got, "urgent") {
		t.Errorf("SeverityBadge(urgent) = %q", got)
	}
	if SeverityColor("urgent") != ColorMuted {
		t.Error("unknown severity not rendered neutral")
	}
}

func TestStatusBadge(t *testing.T) {
	tests := []struct {
		status   vuln.Status
		wantSpin bool
	}{
		{vuln.StatusNotStarted, false},
		{vuln.StatusFailed, false},
		{vuln.StatusCompleted, false},
		{vuln.StatusQueued, true},
		{vuln.StatusPending, true},
		{vuln.StatusProcessing, true},
	}
	for _, tt := range tests {
		got := StatusBadge(tt.status, "@")
		if strings.Contains(got, "@") != tt.wantSpin {
			t.Errorf("StatusBadge(%q) = %q, animated = %v, want %v", tt.status, got, !tt.wantSpin, tt.wantSpin)
		}
		if again := StatusBadge(tt.status, "@"); again != got {
			t.Errorf("StatusBadge(%q) not deterministic", tt.status)
		}
	}

	if got := StatusBadge("not_started", ""); !strings.Contains(got, "not started") {
		t.Errorf("StatusBadge(not_started) = %q", got)
	}
	if got := StatusBadge("exploded", "@"); !strings.Contains(got, "exploded") || strings.Contains(got, "@") {
		t.Errorf("StatusBadge(exploded) = %q", got)
	}
	if statusLooks[vuln.StatusNotStarted].color == statusLooks[vuln.StatusProcessing].color ||
		statusLooks[vuln.StatusFailed].color == statusLooks[vuln.StatusProcessing].color {
		t.Error("terminal statuses share a color with in-progress")
	}
}

func TestVulnListKeys(t *testing.T) {
	items := scenarioProject().Sorted()
	l := NewVulnList()
	l.Focus()

	in := l.Update(key(" "), items)
	if in.Action != ListToggleRow || in.ID != items[0].ID {
		t.Errorf("space = %+v, want toggle of %s", in, items[0].ID)
	}
	if l.Cursor() != 0 {
		t.Errorf("cursor moved to %d on toggle", l.Cursor())
	}

	l.Update(key("down"), items)
	if in := l.Update(key("enter"), items); in.Action != ListOpen || in.ID != items[1].ID {
		t.Errorf("enter = %+v, want open of %s", in, items[1].ID)
	}

	l.Update(key("G"), items)
	l.Update(key("down"), items)
	if l.Cursor() != len(items)-1 {
		t.Errorf("cursor = %d, want clamped to %d", l.Cursor(), len(items)-1)
	}

	if in := l.Update(key("enter"), nil); in.Action != ListNone {
		t.Errorf("enter on empty list = %+v", in)
	}
}

func TestHeaderChecked(t *testing.T) {
	items := scenarioProject().Sorted()
	ids := state.IDs(items)

	tests := []struct {
		name  string
		items []vuln.Vulnerability
		sel   state.Selection
		want  bool
	}{
		{"empty visible", nil, state.NewSelection("v1"), false},
		{"none selected", items, state.NewSelection(), false},
		{"partial", items, state.NewSelection("v1", "v2"), false},
		{"all", items, state.NewSelection(ids...), true},
		{"all plus hidden", items[:2], state.NewSelection(ids...), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeaderChecked(tt.items, tt.sel); got != tt.want {
				t.Errorf("HeaderChecked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverityChart(t *testing.T) {
	counts := state.CountBySeverity(scenarioProject().Sorted())
	out := SeverityChart(counts, 60)
	for _, s := range vuln.Severities {
		if !strings.Contains(out, string(s)) {
			t.Errorf("chart missing %s row:\n%s", s, out)
		}
	}
	if !strings.Contains(out, "(4)") {
		t.Errorf("chart missing total:\n%s", out)
	}
}
