package state

import (
	"testing"

	"github.com/vulndash/vulndash/pkg/vuln"
)

func cwe(s string) *string { return &s }

// scenarioItems mirrors a freshly imported project: four findings, all detected
func scenarioItems() []vuln.Vulnerability {
	return []vuln.Vulnerability{
		{ID: "v1", CWE: cwe("CWE-22"), Severity: vuln.SeverityHigh, Status: vuln.StatusDetected},
		{ID: "v2", CWE: cwe("CWE-22"), Severity: vuln.SeverityMedium, Status: vuln.StatusDetected},
		{ID: "v3", CWE: cwe("CWE-22"), Severity: vuln.SeverityCritical, Status: vuln.StatusDetected},
		{ID: "v4", CWE: cwe("CWE-22"), Severity: vuln.SeverityMedium, Status: vuln.StatusDetected},
	}
}

func TestToggleRoundTrip(t *testing.T) {
	base := NewSelection("a", "b")
	for _, id := range []string{"a", "c"} {
		twice := base.Toggle(id).Toggle(id)
		if !twice.Equal(base) {
			t.Errorf("toggling %s twice = %v, want %v", id, twice.IDs(), base.IDs())
		}
	}
	if !base.IsSelected("a") || base.Len() != 2 {
		t.Error("Toggle must not mutate the receiver")
	}
}

func TestIsAllSelected(t *testing.T) {
	tests := []struct {
		name     string
		sel      Selection
		visible  []string
		expected bool
	}{
		{"empty visible, empty selection", Selection{}, nil, true},
		{"empty visible, some selection", NewSelection("x"), []string{}, true},
		{"all visible selected", NewSelection("a", "b"), []string{"a", "b"}, true},
		{"superset selection", NewSelection("a", "b", "hidden"), []string{"a", "b"}, true},
		{"one missing", NewSelection("a"), []string{"a", "b"}, false},
		{"nothing selected", Selection{}, []string{"a"}, false},
	}

	for _, tt := range tests {
		if got := tt.sel.IsAllSelected(tt.visible); got != tt.expected {
			t.Errorf("%s: IsAllSelected() = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestSelectAllAndClear(t *testing.T) {
	sel := NewSelection("old").SelectAll([]string{"a", "b"})
	if sel.IsSelected("old") || sel.Len() != 2 {
		t.Errorf("SelectAll should set exactly the universe, got %v", sel.IDs())
	}
	if !sel.Clear().Empty() {
		t.Error("Clear should empty the selection")
	}
	if !(Selection{}).SelectAll(nil).IsAllSelected(nil) {
		t.Error("SelectAll over an empty universe should be vacuously all selected")
	}
}

func TestFilterLaws(t *testing.T) {
	items := scenarioItems()

	if got := Apply(Filter{}, items); len(got) != len(items) {
		t.Errorf("empty filter kept %d of %d items", len(got), len(items))
	}

	filters := []Filter{
		{Severities: []vuln.Severity{vuln.SeverityMedium}},
		{Severities: []vuln.Severity{vuln.SeverityLow}},
		{Statuses: []vuln.Status{vuln.StatusDetected}},
		{Statuses: []vuln.Status{vuln.StatusQueued}},
		{Severities: []vuln.Severity{vuln.SeverityHigh, vuln.SeverityCritical}, Statuses: []vuln.Status{vuln.StatusDetected}},
		{Severities: []vuln.Severity{vuln.SeverityHigh}, Statuses: []vuln.Status{vuln.StatusCompleted}},
	}

	for _, f := range filters {
		got := Apply(f, items)
		kept := make(map[string]bool)
		for _, v := range got {
			kept[v.ID] = true
		}
		for _, v := range items {
			sevOK := len(f.Severities) == 0
			for _, s := range f.Severities {
				sevOK = sevOK || s == v.Severity
			}
			stOK := len(f.Statuses) == 0
			for _, s := range f.Statuses {
				stOK = stOK || s == v.Status
			}
			if kept[v.ID] != (sevOK && stOK) {
				t.Errorf("filter %+v: item %s kept=%v, predicate=%v", f, v.ID, kept[v.ID], sevOK && stOK)
			}
		}
	}
}

func TestSelectionSurvivesFilterChanges(t *testing.T) {
	items := scenarioItems()
	sel := Selection{}.SelectAll(IDs(items))

	narrow := Filter{Severities: []vuln.Severity{vuln.SeverityCritical}}
	visible := IDs(Apply(narrow, items))
	if !sel.IsAllSelected(visible) {
		t.Error("narrowed view should still show all selected")
	}

	widened := IDs(Apply(Filter{}, items))
	if !sel.Equal(NewSelection(widened...)) {
		t.Errorf("selection changed across filter changes: %v", sel.IDs())
	}
}

func TestMediumScenario(t *testing.T) {
	items := scenarioItems()
	f := Filter{}.WithSeverities([]string{"medium"})

	visible := Apply(f, items)
	if len(visible) != 2 || visible[0].ID != "v2" || visible[1].ID != "v4" {
		t.Fatalf("medium filter = %v, want [v2 v4]", IDs(visible))
	}

	sel := Selection{}
	if sel.IsAllSelected(IDs(visible)) {
		t.Fatal("nothing should be selected yet")
	}
	sel = sel.SelectAll(IDs(visible))

	f = f.WithSeverities(nil)
	all := Apply(f, items)
	if len(all) != 4 {
		t.Fatalf("cleared filter should show 4 items, got %d", len(all))
	}
	if !sel.Equal(NewSelection("v2", "v4")) {
		t.Errorf("selection = %v, want [v2 v4]", sel.IDs())
	}
	if sel.IsAllSelected(IDs(all)) {
		t.Error("header checkbox must not read as all selected for the full list")
	}
}

func TestFilterSettersAreIndependent(t *testing.T) {
	f := Filter{}.WithSeverities([]string{"high"}).WithStatuses([]string{"queued", "pending"})
	if len(f.Severities) != 1 || len(f.Statuses) != 2 {
		t.Errorf("unexpected filter %+v", f)
	}
	cleared := f.WithStatuses(nil)
	if len(cleared.Severities) != 1 || cleared.Active() == false {
		t.Error("clearing statuses must keep severities")
	}
	if len(f.Statuses) != 2 {
		t.Error("WithStatuses must not mutate the receiver")
	}
	if (Filter{}).Active() {
		t.Error("zero filter should be inactive")
	}
}

func TestCountBySeverity(t *testing.T) {
	items := append(scenarioItems(), vuln.Vulnerability{ID: "v5", Severity: "odd"})
	counts := CountBySeverity(items)

	want := map[vuln.Severity]int{
		vuln.SeverityCritical: 1,
		vuln.SeverityHigh:     1,
		vuln.SeverityMedium:   2,
		vuln.SeverityLow:      0,
		"unknown":             1,
	}
	if len(counts) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(counts))
	}
	for _, c := range counts {
		if want[c.Severity] != c.Count {
			t.Errorf("count[%s] = %d, want %d", c.Severity, c.Count, want[c.Severity])
		}
	}

	filtered := Apply(Filter{Severities: []vuln.Severity{vuln.SeverityMedium}}, items)
	for _, c := range CountBySeverity(filtered) {
		if c.Severity != vuln.SeverityMedium && c.Count != 0 {
			t.Errorf("filtered summary should only count medium, got %s=%d", c.Severity, c.Count)
		}
	}
}
