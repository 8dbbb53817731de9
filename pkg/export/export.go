// Package export writes a project's findings as a terminal table, JSON,
// CSV, an Excel workbook or a tar.gz report bundle.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vulndash/vulndash/pkg/vuln"
)

// Format is an output format
type Format string

const (
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatExcel  Format = "xlsx"
	FormatBundle Format = "bundle"
)

// Formats lists every format in menu order
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatExcel, FormatBundle}

// ParseFormat accepts a format name or a file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	case "bundle", "tgz", "tar.gz":
		return FormatBundle, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Extension is the file extension for the format
func (f Format) Extension() string {
	switch f {
	case FormatBundle:
		return ".tar.gz"
	case FormatTable:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// Write renders p's findings in the given format
func Write(w io.Writer, format Format, p *vuln.Project) error {
	items := p.Sorted()
	switch format {
	case FormatTable:
		return WriteTable(w, items, TableOptions{})
	case FormatJSON:
		return WriteJSON(w, p)
	case FormatCSV:
		return WriteCSV(w, items)
	case FormatExcel:
		return WriteExcel(w, p.Name, items)
	case FormatBundle:
		return WriteBundle(w, p)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// TestSummary is a one-word rendering of the last test outcome
func TestSummary(t *vuln.LastTest) string {
	switch {
	case t == nil:
		return "not tested"
	case t.Result == nil:
		if t.Status != "" && vuln.Status(t.Status).InProgress() {
			return t.Status
		}
		return "failed"
	case !t.Result.Exploitable:
		return "not exploitable"
	default:
		return "exploitable (line " + strconv.Itoa(t.Result.LineNumber) + ")"
	}
}

type projectDocument struct {
	ID              string               `json:"id,omitempty"`
	Name            string               `json:"project_name"`
	Count           int                  `json:"count"`
	Vulnerabilities []vuln.Vulnerability `json:"vulnerabilities"`
}

// WriteJSON writes the project with its findings as an ordered array
func WriteJSON(w io.Writer, p *vuln.Project) error {
	items := p.Sorted()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(projectDocument{ID: p.ID, Name: p.Name, Count: len(items), Vulnerabilities: items})
}

var columns = []string{"ID", "Label", "Severity", "Status", "Vulnerability", "File", "Last test"}

func row(v vuln.Vulnerability) []string {
	return []string{
		v.ID,
		v.Label(),
		string(v.Severity),
		string(v.Status),
		v.Title,
		v.FileKey,
		TestSummary(v.LastTest),
	}
}

// WriteCSV writes one row per finding with a header row
func WriteCSV(w io.Writer, items []vuln.Vulnerability) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, v := range items {
		if err := cw.Write(row(v)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
