package tui

import (
	"strings"
	"testing"

	"github.com/vulndash/vulndash/pkg/vuln"
)

func TestRenderLastTest(t *testing.T) {
	tests := []struct {
		name    string
		last    *vuln.LastTest
		want    []string
		notWant []string
	}{
		{
			name: "not tested",
			want: []string{MsgNotTested},
		},
		{
			name: "no result",
			last: &vuln.LastTest{Status: "failed", Error: "agent crashed"},
			want: []string{MsgTestFailed, "agent crashed"},
		},
		{
			name: "not exploitable",
			last: &vuln.LastTest{Result: &vuln.TestResult{
				Exploitable: false,
				Suggestion:  "HIDDEN-SUGGESTION",
				Remediation: "HIDDEN-REMEDIATION",
				LineNumber:  42,
			}},
			want:    []string{MsgNotExploitable},
			notWant: []string{"HIDDEN-SUGGESTION", "HIDDEN-REMEDIATION", "line 42"},
		},
		{
			name: "exploitable",
			last: &vuln.LastTest{Result: &vuln.TestResult{
				Exploitable: true,
				Suggestion:  "Use parameterised queries",
				Remediation: "Patch db.go",
				LineNumber:  11,
				FileContext: "10|a := 1\n11|query(a)\n12|return",
			}},
			want: []string{"Use parameterised queries", "Patch db.go", "Vulnerability found on line 11", "11|query(a)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderLastTest(tt.last)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("RenderLastTest missing %q in:\n%s", w, got)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("RenderLastTest contains %q in:\n%s", nw, got)
				}
			}
		})
	}
}

func TestRenderVulnerabilitySplitsDetails(t *testing.T) {
	cwe := "CWE-89"
	out := RenderVulnerability(vuln.Vulnerability{
		ID:       "v1",
		CWE:      &cwe,
		Title:    "SQL injection",
		Details:  `first line\nsecond line`,
		Severity: vuln.SeverityHigh,
	}, 80)

	for _, want := range []string{"CWE-89", "SQL injection", "first line", "second line", MsgNotTested} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, `\n`) {
		t.Errorf("literal \\n left in output:\n%s", out)
	}
}

func TestDetailViewLoad(t *testing.T) {
	fb := &fakeBackend{vulns: map[string]*vuln.Vulnerability{
		"v1": {ID: "v1", Title: "XSS", Severity: vuln.SeverityLow},
	}}

	v := NewDetailView(fb, "p1", "v1")
	defer v.Close()
	v.Update(v.load())
	if v.Query() != QueryReady {
		t.Fatalf("query = %v, want ready", v.Query())
	}
	if !strings.Contains(v.View(), "XSS") {
		t.Errorf("view missing title:\n%s", v.View())
	}

	missing := NewDetailView(fb, "p1", "nope")
	defer missing.Close()
	missing.Update(missing.load())
	if missing.Query() != QueryFailed || !strings.Contains(missing.View(), genericErrorMessage) {
		t.Errorf("missing vulnerability: query = %v view = %q", missing.Query(), missing.View())
	}

	if _, ok := v.Update(key("esc"))().(backMsg); !ok {
		t.Error("esc did not go back")
	}
}
