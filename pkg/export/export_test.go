package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/xuri/excelize/v2"

	"github.com/vulndash/vulndash/pkg/vuln"
)

func strPtr(s string) *string { return &s }

func sampleProject() *vuln.Project {
	return &vuln.Project{
		ID:   "p1",
		Name: "juice-shop",
		Vulnerabilities: map[string]vuln.Vulnerability{
			"v1": {ID: "v1", CVE: strPtr("CVE-2023-1"), Title: "SQL injection", Severity: vuln.SeverityHigh, Status: vuln.StatusCompleted,
				LastTest: &vuln.LastTest{Status: "completed", Result: &vuln.TestResult{Exploitable: true, LineNumber: 34}}},
			"v2": {ID: "v2", CWE: strPtr("CWE-79"), Title: "XSS", Severity: vuln.SeverityLow, Status: vuln.StatusNotStarted},
			"v3": {ID: "v3", Title: "RCE", Severity: vuln.SeverityCritical, Status: vuln.StatusPending,
				LastTest: &vuln.LastTest{Status: "pending"}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatTable},
		{"JSON", FormatJSON},
		{".csv", FormatCSV},
		{"excel", FormatExcel},
		{"tar.gz", FormatBundle},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
	if FormatBundle.Extension() != ".tar.gz" || FormatExcel.Extension() != ".xlsx" {
		t.Error("unexpected extensions")
	}
}

func TestTestSummary(t *testing.T) {
	tests := []struct {
		name string
		in   *vuln.LastTest
		want string
	}{
		{"untested", nil, "not tested"},
		{"failed", &vuln.LastTest{Status: "completed", Error: "boom"}, "failed"},
		{"running", &vuln.LastTest{Status: "queued"}, "queued"},
		{"safe", &vuln.LastTest{Result: &vuln.TestResult{}}, "not exploitable"},
		{"exploitable", &vuln.LastTest{Result: &vuln.TestResult{Exploitable: true, LineNumber: 7}}, "exploitable (line 7)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TestSummary(tt.in); got != tt.want {
				t.Errorf("TestSummary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteTable(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	if err := WriteTable(&buf, sampleProject().Sorted(), TableOptions{}); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"CVE-2023-1", "CWE-79", "#v3", "critical", "exploitable (line 34)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "#v3") > strings.Index(out, "CVE-2023-1") {
		t.Error("critical finding should be listed first")
	}

	buf.Reset()
	if err := WriteTable(&buf, nil, TableOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No vulnerabilities!") {
		t.Errorf("empty table = %q", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sampleProject()); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[1][0] != "v3" || records[3][0] != "v2" {
		t.Errorf("rows out of severity order: %v", records)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sampleProject()); err != nil {
		t.Fatal(err)
	}
	var doc projectDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Count != 3 || doc.Vulnerabilities[0].ID != "v3" || doc.Name != "juice-shop" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestWriteExcel(t *testing.T) {
	p := sampleProject()
	var buf bytes.Buffer
	if err := WriteExcel(&buf, p.Name, p.Sorted()); err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue(findingsSheet, "A1"); v != "ID" {
		t.Errorf("A1 = %q", v)
	}
	if v, _ := f.GetCellValue(findingsSheet, "C3"); v != "CVE-2023-1" {
		t.Errorf("C3 = %q", v)
	}
	if v, _ := f.GetCellValue(summarySheet, "B1"); v != "juice-shop" {
		t.Errorf("project = %q", v)
	}
	if v, _ := f.GetCellValue(summarySheet, "B2"); v != "3" {
		t.Errorf("total = %q", v)
	}
}

func TestWriteBundle(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatBundle, sampleProject()); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}

	gr, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gr)
	found := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(tr)
		found[hdr.Name] = data
	}

	for _, name := range []string{"findings.json", "findings.csv", "findings.xlsx", "manifest.json"} {
		if _, ok := found[name]; !ok {
			t.Errorf("bundle missing %s", name)
		}
	}
	var m Manifest
	if err := json.Unmarshal(found["manifest.json"], &m); err != nil {
		t.Fatal(err)
	}
	if m.Version != BundleVersion || m.Project != "juice-shop" || m.Counts["critical"] != 1 || len(m.Files) != 3 {
		t.Errorf("manifest = %+v", m)
	}
}
