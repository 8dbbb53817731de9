// Package state holds the view-session state of a project page: which
// findings are selected and which severity/status filters are active.
// Every transition returns a new value and leaves the receiver untouched.
package state

import "sort"

// Selection is a set of vulnerability ids. The zero value is empty and ready
// to use. Selection is independent of what is currently visible.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection containing ids
func NewSelection(ids ...string) Selection {
	s := Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s Selection) clone() Selection {
	out := Selection{ids: make(map[string]struct{}, len(s.ids)+1)}
	for id := range s.ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Toggle flips the membership of id
func (s Selection) Toggle(id string) Selection {
	out := s.clone()
	if _, ok := out.ids[id]; ok {
		delete(out.ids, id)
	} else {
		out.ids[id] = struct{}{}
	}
	return out
}

// SelectAll replaces the selection with exactly universe
func (s Selection) SelectAll(universe []string) Selection {
	return NewSelection(universe...)
}

// Clear empties the selection
func (s Selection) Clear() Selection {
	return Selection{}
}

// IsSelected reports whether id is selected
func (s Selection) IsSelected(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// IsAllSelected reports whether every id in universe is selected. Ids
// outside universe are ignored, and an empty universe is vacuously all
// selected.
func (s Selection) IsAllSelected(universe []string) bool {
	for _, id := range universe {
		if !s.IsSelected(id) {
			return false
		}
	}
	return true
}

// Len returns the number of selected ids
func (s Selection) Len() int {
	return len(s.ids)
}

// Empty reports whether nothing is selected
func (s Selection) Empty() bool {
	return len(s.ids) == 0
}

// IDs returns the selected ids in sorted order
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both selections hold the same ids
func (s Selection) Equal(other Selection) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.ids {
		if !other.IsSelected(id) {
			return false
		}
	}
	return true
}
