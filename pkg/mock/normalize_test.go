package mock

import (
	"strings"
	"testing"
)

func TestFileKey(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"", ""},
		{"src/lib.js", "src/lib.js"},
		{"{'file' => 'a.js', 'start_line' => 3, 'end_line' => 5}", "a.js:3-5"},
		{"{'file' => 'a.js', 'start_line' => 3}", "a.js"},
		{`{"file": "b/c.py", "start_line": "7", "end_line": "9"}`, "b/c.py:7-9"},
		{"{'start_line' => 3, 'end_line' => 5}", ""},
		{"{'file' => ", ""},
	}
	for _, tt := range tests {
		if got := FileKey(tt.location); got != tt.want {
			t.Errorf("FileKey(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Severity":      "severity",
		"Scanner Name":  "scanner_name",
		" File Key ":    "file_key",
		"vulnerability": "vulnerability",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

const sampleCSV = `CVE,CWE,Vulnerability,Details,Severity,Location,Scanner Name
,CWE-79,Reflected XSS,User input echoed\nin page,Medium,"{'file' => 'src/app.js', 'start_line' => 3, 'end_line' => 5}",semgrep
CVE-2024-1,,Prototype pollution,,High,src/lib.js,npm-audit
,CWE-89,SQL injection,,critical,"{'file' => 'db.js', 'start_line' => 10}",semgrep
`

func TestParseCSV(t *testing.T) {
	vulns, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(vulns) != 3 {
		t.Fatalf("got %d findings, want 3", len(vulns))
	}

	wantTitles := []string{"SQL injection", "Prototype pollution", "Reflected XSS"}
	wantKeys := []string{"db.js", "src/lib.js", "src/app.js:3-5"}
	wantSev := []string{"critical", "high", "medium"}
	seen := map[string]bool{}
	for i, v := range vulns {
		if v.Title != wantTitles[i] {
			t.Errorf("row %d title = %q, want %q", i, v.Title, wantTitles[i])
		}
		if v.FileKey != wantKeys[i] {
			t.Errorf("row %d file_key = %q, want %q", i, v.FileKey, wantKeys[i])
		}
		if v.Severity != wantSev[i] {
			t.Errorf("row %d severity = %q, want %q", i, v.Severity, wantSev[i])
		}
		if v.Status != "not_started" {
			t.Errorf("row %d status = %q, want not_started", i, v.Status)
		}
		if v.Position != i {
			t.Errorf("row %d position = %d", i, v.Position)
		}
		if v.ID == "" || seen[v.ID] {
			t.Errorf("row %d id %q empty or duplicated", i, v.ID)
		}
		seen[v.ID] = true
	}

	if vulns[1].CVE == nil || *vulns[1].CVE != "CVE-2024-1" || vulns[1].CWE != nil {
		t.Errorf("row 1 codes = %v / %v", vulns[1].CVE, vulns[1].CWE)
	}
	if vulns[2].Extra != `{"scanner_name":"semgrep"}` {
		t.Errorf("row 2 extra = %q", vulns[2].Extra)
	}
	if api := vulns[2].API(); len(api.DetailLines()) != 2 {
		t.Errorf("details lines = %v, want 2", api.DetailLines())
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Error("ParseCSV(empty) succeeded")
	}
	vulns, err := ParseCSV(strings.NewReader("CVE,Severity\n"))
	if err != nil || len(vulns) != 0 {
		t.Errorf("header only = %v, %v", vulns, err)
	}
}

func TestSimulateResult(t *testing.T) {
	low := SimulateResult(Vulnerability{Severity: "low", FileKey: "a.js:3-5"})
	if low.Exploitable || low.Suggestion != "" || low.LineNumber != 0 {
		t.Errorf("low result = %+v, want bare not exploitable", low)
	}

	high := SimulateResult(Vulnerability{Severity: "high", Title: "XSS", FileKey: "a.js:12-14"})
	if !high.Exploitable || high.LineNumber != 12 {
		t.Fatalf("high result = %+v", high)
	}
	highlighted := 0
	for _, l := range high.ParseContext() {
		if l.Highlight {
			highlighted++
		}
	}
	if highlighted != 1 {
		t.Errorf("context highlights %d lines, want 1:\n%s", highlighted, high.FileContext)
	}

	if again := SimulateResult(Vulnerability{Severity: "high", Title: "XSS", FileKey: "a.js:12-14"}); again != high {
		t.Error("SimulateResult is not deterministic")
	}
}
