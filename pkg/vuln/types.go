// Package vuln holds the read-only data model served by the scanning backend:
// projects, their vulnerabilities and the results of exploitation tests.
package vuln

import (
	"sort"
	"strconv"
	"strings"
)

// Severity is the risk tier of a vulnerability
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the known tiers from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities by increasing risk. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Known reports whether s is one of the four tiers
func (s Severity) Known() bool {
	return s.Rank() > 0
}

// ParseSeverity normalises a raw severity string. Unknown input is kept
// verbatim (lower-cased) so that it can still be displayed.
func ParseSeverity(raw string) Severity {
	return Severity(strings.ToLower(strings.TrimSpace(raw)))
}

// Status is the testing lifecycle stage of a vulnerability
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusQueued     Status = "queued"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	// Alternate lifecycle used by imported scans
	StatusDetected Status = "detected"
	StatusFinished Status = "finished"
)

// Statuses lists every known status in lifecycle order
var Statuses = []Status{
	StatusNotStarted,
	StatusDetected,
	StatusQueued,
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFinished,
	StatusFailed,
}

// Known reports whether s is a defined status
func (s Status) Known() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// InProgress reports whether the backend is still working on s
func (s Status) InProgress() bool {
	return s == StatusQueued || s == StatusPending || s == StatusProcessing
}

// IndexingStatus is the state of the server-side source indexing job
type IndexingStatus string

const (
	IndexingNotStarted IndexingStatus = "not_started"
	IndexingProcessing IndexingStatus = "processing"
	IndexingCompleted  IndexingStatus = "completed"
	IndexingFailed     IndexingStatus = "failed"
)

// Vulnerability is a single finding within a project
type Vulnerability struct {
	ID       string    `json:"id"`
	CVE      *string   `json:"cve,omitempty"`
	CWE      *string   `json:"cwe,omitempty"`
	Title    string    `json:"vulnerability,omitempty"`
	Details  string    `json:"details,omitempty"`
	FileKey  string    `json:"file_key,omitempty"` // path[:start[-end]]
	Severity Severity  `json:"severity"`
	Status   Status    `json:"status"`
	LastTest *LastTest `json:"last_test,omitempty"`
}

// Label returns the CVE code when present, otherwise the CWE code. A finding
// carrying neither falls back to its id.
func (v Vulnerability) Label() string {
	if v.CVE != nil && *v.CVE != "" {
		return *v.CVE
	}
	if v.CWE != nil && *v.CWE != "" {
		return *v.CWE
	}
	if v.ID != "" {
		return "#" + v.ID
	}
	return "unknown"
}

// DetailLines splits the details text on real and escaped newlines
func (v Vulnerability) DetailLines() []string {
	text := strings.ReplaceAll(v.Details, `\n`, "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// LastTest records the most recent exploitation attempt
type LastTest struct {
	TaskID string      `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Status string      `json:"status,omitempty" yaml:"status,omitempty"`
	Result *TestResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// TestResult is what the agent reported for one attempt. Only Exploitable is
// meaningful when Exploitable is false.
type TestResult struct {
	Exploitable bool   `json:"exploitable" yaml:"exploitable"`
	Remediation string `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	LineNumber  int    `json:"line_number,omitempty" yaml:"line_number,omitempty"`
	FileContext string `json:"file_context,omitempty" yaml:"file_context,omitempty"`
	Suggestion  string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// ContextLine is one line of the source window around a flaw
type ContextLine struct {
	Number    int
	Text      string
	Highlight bool
}

// ParseContext splits FileContext ("12|source" per line) and marks the line
// matching LineNumber. Lines without a numeric prefix keep Number 0.
func (r TestResult) ParseContext() []ContextLine {
	if r.FileContext == "" {
		return nil
	}
	var lines []ContextLine
	for _, raw := range strings.Split(strings.TrimRight(r.FileContext, "\n"), "\n") {
		line := ContextLine{Text: raw}
		if prefix, _, ok := strings.Cut(raw, "|"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(prefix)); err == nil {
				line.Number = n
				line.Highlight = n == r.LineNumber
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// Project is a scanned codebase and its findings keyed by vulnerability id
type Project struct {
	ID              string                   `json:"-"`
	Name            string                   `json:"project_name"`
	Vulnerabilities map[string]Vulnerability `json:"vulnerabilities"`
}

// Sorted returns the findings ordered by severity (most severe first), then
// label, then id. Map keys fill in missing ids.
func (p *Project) Sorted() []Vulnerability {
	out := make([]Vulnerability, 0, len(p.Vulnerabilities))
	for id, v := range p.Vulnerabilities {
		if v.ID == "" {
			v.ID = id
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		if li, lj := out[i].Label(), out[j].Label(); li != lj {
			return li < lj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ProjectSummary is the listing entry for a project
type ProjectSummary struct {
	ID   string `json:"_id"`
	Name string `json:"project_name"`
}
