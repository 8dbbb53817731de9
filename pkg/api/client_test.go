package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/vulndash/vulndash/pkg/vuln"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "localhost"}); err == nil {
		t.Error("expected error for relative base url")
	}
}

func TestListProjects(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/project/get_all_projects" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"_id":"p1","project_name":"Gigachat"},{"_id":"p2","project_name":"Shop"}]`))
	}))

	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 2 || projects[0].ID != "p1" || projects[1].Name != "Shop" {
		t.Errorf("unexpected projects %+v", projects)
	}
}

func TestGetProjectCachesUntilInvalidated(t *testing.T) {
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/api/project/get_project/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"project_name":"Gigachat","vulnerabilities":{
			"a":{"id":"a","cwe":"CWE-22","severity":"high","status":"detected"},
			"b":{"cve":"CVE-2024-1","cwe":"CWE-79","severity":"low","status":"queued"}}}`))
	}))

	ctx := context.Background()
	p, err := c.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if p.ID != "p1" || p.Name != "Gigachat" || len(p.Vulnerabilities) != 2 {
		t.Errorf("unexpected project %+v", p)
	}
	if p.Vulnerabilities["b"].Label() != "CVE-2024-1" {
		t.Errorf("label = %q", p.Vulnerabilities["b"].Label())
	}

	c.GetProject(ctx, "p1")
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times before invalidation, want 1", n)
	}

	c.InvalidateProject("p1")
	c.GetProject(ctx, "p1")
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("server hit %d times after invalidation, want 2", n)
	}
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Project not found"}`, http.StatusNotFound)
	}))

	_, err := c.GetProject(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("expected StatusError 404, got %v", err)
	}
}

func TestIndexingStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/project/indexing-status/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"processing"}`))
	}))

	status, err := c.IndexingStatus(context.Background(), "p1")
	if err != nil {
		t.Fatalf("IndexingStatus() error = %v", err)
	}
	if status != vuln.IndexingProcessing {
		t.Errorf("status = %q", status)
	}
}

func TestGetVulnerability(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/vulnerabilities/get-vulnerability/p1/v9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"cwe":"CWE-89","severity":"critical","status":"completed",
			"last_test":{"status":"completed","result":{"exploitable":true,"line_number":3,
			"file_context":"2|a\n3|b","suggestion":"use params"}}}`))
	}))

	v, err := c.GetVulnerability(context.Background(), "p1", "v9")
	if err != nil {
		t.Fatalf("GetVulnerability() error = %v", err)
	}
	if v.ID != "v9" {
		t.Errorf("ID = %q, want v9", v.ID)
	}
	if v.LastTest == nil || v.LastTest.Result == nil || !v.LastTest.Result.Exploitable {
		t.Fatalf("last test not decoded: %+v", v.LastTest)
	}
	if v.LastTest.Result.Suggestion != "use params" {
		t.Errorf("suggestion = %q", v.LastTest.Result.Suggestion)
	}
}

func TestInvokeTest(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/agent/pentest/test" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["project_id"] != "p1" || body["vulnerability_id"] != "v1" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"task_id":"t-1","status":"processing"}`))
	}))

	ticket, err := c.InvokeTest(context.Background(), "p1", "v1")
	if err != nil {
		t.Fatalf("InvokeTest() error = %v", err)
	}
	if ticket.TaskID != "t-1" {
		t.Errorf("TaskID = %q", ticket.TaskID)
	}
}

func TestInvokeTestIgnoresOddBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`queued`))
	}))

	if _, err := c.InvokeTest(context.Background(), "p1", "v1"); err != nil {
		t.Errorf("non-JSON acknowledgement should not fail, got %v", err)
	}
}

func TestCreateProjectMultipart(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "issues.csv")
	if err := os.WriteFile(csvPath, []byte("CWE,Severity\nCWE-22,high\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("project_name") != "Shop" || r.FormValue("url") != "https://git/x" || r.FormValue("deployment_url") != "https://shop" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("csv_file")
		if err != nil {
			t.Fatalf("csv_file missing: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "issues.csv" || len(data) == 0 {
			t.Errorf("unexpected file %s (%d bytes)", hdr.Filename, len(data))
		}
		w.Write([]byte(`{"message":"Project created successfully","project_id":"new-1"}`))
	}))

	id, err := c.CreateProject(context.Background(), CreateProjectRequest{
		Name:          "Shop",
		SourceURL:     "https://git/x",
		DeploymentURL: "https://shop",
		CSVPath:       csvPath,
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if id != "new-1" {
		t.Errorf("id = %q, want new-1", id)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	if _, err := c.CreateProject(context.Background(), CreateProjectRequest{}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestListProjectsCachedUntilInvalidated(t *testing.T) {
	var lists int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/project/get_all_projects":
			atomic.AddInt32(&lists, 1)
			w.Write([]byte(`[{"_id":"p1","project_name":"Gigachat"}]`))
		case "/api/project/create":
			w.Write([]byte(`{"project_id":"p2"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	ctx := context.Background()

	first, err := c.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	first[0].Name = "mutated"
	second, _ := c.ListProjects(ctx)
	if n := atomic.LoadInt32(&lists); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
	if second[0].Name != "Gigachat" {
		t.Errorf("cached listing shared with caller: %+v", second)
	}

	if _, err := c.CreateProject(ctx, CreateProjectRequest{Name: "Shop"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	c.ListProjects(ctx)
	if n := atomic.LoadInt32(&lists); n != 2 {
		t.Errorf("server hit %d times after create, want 2", n)
	}

	c.InvalidateProjects()
	c.ListProjects(ctx)
	if n := atomic.LoadInt32(&lists); n != 3 {
		t.Errorf("server hit %d times after invalidation, want 3", n)
	}
}

func TestCallerTimeoutsDoNotTripBreaker(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		switch r.URL.Path {
		case "/api/project/indexing-status/p1":
			w.Write([]byte(`{"status":"processing"}`))
		case "/api/project/get_project/p1":
			w.Write([]byte(`{"project_name":"Gigachat","vulnerabilities":{}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	for i := 0; i < 6; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := c.IndexingStatus(ctx, "p1")
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("call %d: error = %v, want deadline exceeded", i, err)
		}
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.IndexingStatus(cancelled, "p1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	if _, err := c.GetProject(context.Background(), "p1"); err != nil {
		t.Fatalf("GetProject() after caller timeouts: %v", err)
	}
}

func TestServerErrorsTripBreaker(t *testing.T) {
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	for i := 0; i < 5; i++ {
		if _, err := c.IndexingStatus(context.Background(), "p1"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	_, err := c.IndexingStatus(context.Background(), "p1")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want open breaker", err)
	}
	if n := atomic.LoadInt32(&hits); n != 5 {
		t.Errorf("server hit %d times, want 5", n)
	}
}
