package mock

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vulndash/vulndash/pkg/vuln"
)

// NormalizeKey lower-cases a CSV header and turns spaces into underscores
func NormalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
}

// FileKey derives "path:start-end" from a scanner Location cell such as
// {'file' => 'a.js', 'start_line' => 3, 'end_line' => 5}. A location without
// both line numbers yields the bare path; an unreadable hash yields "".
// Plain paths are returned as is.
func FileKey(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	if !strings.HasPrefix(location, "{") {
		return location
	}

	normalized := strings.ReplaceAll(location, "=>", ":")
	normalized = strings.ReplaceAll(normalized, "'", `"`)

	dec := json.NewDecoder(strings.NewReader(normalized))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return ""
	}

	file := scalar(fields["file"])
	start := scalar(fields["start_line"])
	end := scalar(fields["end_line"])
	if file != "" && start != "" && end != "" {
		return fmt.Sprintf("%s:%s-%s", file, start, end)
	}
	return file
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// ParseCSV reads a scanner export into findings with fresh ids and status
// not_started, ordered by severity (most severe first) and then row order.
// Columns other than the known ones are kept in Extra as JSON.
func ParseCSV(r io.Reader) ([]Vulnerability, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv file is empty")
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = NormalizeKey(strings.TrimPrefix(h, "\ufeff"))
	}

	var out []Vulnerability
	for row := 0; ; row++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", row+1, err)
		}

		fields := make(map[string]string, len(keys))
		for i, k := range keys {
			if i < len(rec) {
				fields[k] = rec[i]
			}
		}
		out = append(out, fromFields(fields, row))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return vuln.Severity(out[i].Severity).Rank() > vuln.Severity(out[j].Severity).Rank()
	})
	for i := range out {
		out[i].Position = i
	}
	return out, nil
}

var knownColumns = map[string]bool{
	"cve": true, "cwe": true, "vulnerability": true, "title": true,
	"details": true, "description": true, "severity": true, "location": true,
	"id": true, "status": true, "file_key": true,
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstOf(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}

func fromFields(fields map[string]string, row int) Vulnerability {
	v := Vulnerability{
		ID:       uuid.NewString(),
		Position: row,
		CVE:      optional(fields["cve"]),
		CWE:      optional(fields["cwe"]),
		Title:    firstOf(fields, "vulnerability", "title"),
		Details:  firstOf(fields, "details", "description"),
		FileKey:  FileKey(fields["location"]),
		Severity: string(vuln.ParseSeverity(fields["severity"])),
		Status:   string(vuln.StatusNotStarted),
	}

	extra := make(map[string]string)
	for k, val := range fields {
		if !knownColumns[k] && val != "" {
			extra[k] = val
		}
	}
	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			v.Extra = string(b)
		}
	}
	return v
}
