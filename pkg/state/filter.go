package state

import (
	"github.com/vulndash/vulndash/pkg/vuln"
)

// Filter holds the severity and status constraints of the list. An empty set
// places no constraint; within a set values are OR-ed, and the two sets are
// AND-ed together.
type Filter struct {
	Severities []vuln.Severity
	Statuses   []vuln.Status
}

// WithSeverities returns f with the severity set replaced
func (f Filter) WithSeverities(values []string) Filter {
	out := Filter{Statuses: append([]vuln.Status(nil), f.Statuses...)}
	for _, v := range values {
		out.Severities = append(out.Severities, vuln.Severity(v))
	}
	return out
}

// WithStatuses returns f with the status set replaced
func (f Filter) WithStatuses(values []string) Filter {
	out := Filter{Severities: append([]vuln.Severity(nil), f.Severities...)}
	for _, v := range values {
		out.Statuses = append(out.Statuses, vuln.Status(v))
	}
	return out
}

// SeverityValues returns the severity set as plain strings
func (f Filter) SeverityValues() []string {
	out := make([]string, 0, len(f.Severities))
	for _, s := range f.Severities {
		out = append(out, string(s))
	}
	return out
}

// StatusValues returns the status set as plain strings
func (f Filter) StatusValues() []string {
	out := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		out = append(out, string(s))
	}
	return out
}

// Active reports whether any constraint is set
func (f Filter) Active() bool {
	return len(f.Severities) > 0 || len(f.Statuses) > 0
}

// Match reports whether v passes both constraints
func (f Filter) Match(v vuln.Vulnerability) bool {
	return matchSeverity(f.Severities, v.Severity) && matchStatus(f.Statuses, v.Status)
}

func matchSeverity(set []vuln.Severity, s vuln.Severity) bool {
	if len(set) == 0 {
		return true
	}
	for _, want := range set {
		if want == s {
			return true
		}
	}
	return false
}

func matchStatus(set []vuln.Status, s vuln.Status) bool {
	if len(set) == 0 {
		return true
	}
	for _, want := range set {
		if want == s {
			return true
		}
	}
	return false
}

// Apply returns the items of all that pass f, preserving order
func Apply(f Filter, all []vuln.Vulnerability) []vuln.Vulnerability {
	out := make([]vuln.Vulnerability, 0, len(all))
	for _, v := range all {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// IDs returns the ids of items in order
func IDs(items []vuln.Vulnerability) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.ID
	}
	return out
}

// SeverityCount is one bar of the severity summary
type SeverityCount struct {
	Severity vuln.Severity
	Count    int
}

// CountBySeverity tallies items per known tier, most severe first. Unknown
// severities are counted under an extra trailing entry only when present.
func CountBySeverity(items []vuln.Vulnerability) []SeverityCount {
	counts := make(map[vuln.Severity]int)
	unknown := 0
	for _, v := range items {
		if v.Severity.Known() {
			counts[v.Severity]++
		} else {
			unknown++
		}
	}

	out := make([]SeverityCount, 0, len(vuln.Severities)+1)
	for _, s := range vuln.Severities {
		out = append(out, SeverityCount{Severity: s, Count: counts[s]})
	}
	if unknown > 0 {
		out = append(out, SeverityCount{Severity: "unknown", Count: unknown})
	}
	return out
}
