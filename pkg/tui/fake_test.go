package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vulndash/vulndash/pkg/api"
	"github.com/vulndash/vulndash/pkg/vuln"
)

var errBackend = errors.New("backend down")

type fakeBackend struct {
	mu sync.Mutex

	project     *vuln.Project
	projectErr  error
	projects    []vuln.ProjectSummary
	listErr     error
	indexing    vuln.IndexingStatus
	indexingErr error
	vulns       map[string]*vuln.Vulnerability
	createID    string
	createErr   error

	invoked           []string
	invalidated       int
	listInvalidations int
	created           []api.CreateProjectRequest
}

func (f *fakeBackend) ListProjects(ctx context.Context) ([]vuln.ProjectSummary, error) {
	return f.projects, f.listErr
}

func (f *fakeBackend) InvalidateProjects() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listInvalidations++
}

func (f *fakeBackend) CreateProject(ctx context.Context, r api.CreateProjectRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, r)
	return f.createID, f.createErr
}

func (f *fakeBackend) GetProject(ctx context.Context, id string) (*vuln.Project, error) {
	if f.projectErr != nil {
		return nil, f.projectErr
	}
	return f.project, nil
}

func (f *fakeBackend) InvalidateProject(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeBackend) IndexingStatus(ctx context.Context, id string) (vuln.IndexingStatus, error) {
	return f.indexing, f.indexingErr
}

func (f *fakeBackend) GetVulnerability(ctx context.Context, pid, vid string) (*vuln.Vulnerability, error) {
	v, ok := f.vulns[vid]
	if !ok {
		return nil, api.ErrNotFound
	}
	return v, nil
}

func (f *fakeBackend) InvokeTest(ctx context.Context, pid, vid string) (*api.TestTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, vid)
	return &api.TestTicket{TaskID: "task-" + vid, Status: "queued"}, nil
}

func (f *fakeBackend) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}

func (f *fakeBackend) invokedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invoked...)
}

// scenarioProject has v1..v4 as high, medium, critical, medium, all detected
func scenarioProject() *vuln.Project {
	cve := "CVE-2024-0001"
	return &vuln.Project{
		ID:   "p1",
		Name: "demo",
		Vulnerabilities: map[string]vuln.Vulnerability{
			"v1": {CVE: &cve, Title: "SQL injection", Severity: vuln.SeverityHigh, Status: vuln.StatusDetected},
			"v2": {Title: "Open redirect", Severity: vuln.SeverityMedium, Status: vuln.StatusDetected},
			"v3": {Title: "RCE", Severity: vuln.SeverityCritical, Status: vuln.StatusDetected},
			"v4": {Title: "XSS", Severity: vuln.SeverityMedium, Status: vuln.StatusDetected},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func projectsFixture() []vuln.ProjectSummary {
	return []vuln.ProjectSummary{{ID: "a1", Name: "alpha"}, {ID: "b2", Name: "beta"}}
}
