// Package api is the HTTP client for the scanning backend: project CRUD,
// vulnerability lookup, indexing status and pentest agent invocation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vulndash/vulndash/pkg/cache"
	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// ErrNotFound is returned for 404 responses
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// callerDoneError wraps a failure caused by the request's own context
// ending, so the circuit breaker does not count it against the backend
type callerDoneError struct {
	err error
}

func (e *callerDoneError) Error() string { return e.err.Error() }
func (e *callerDoneError) Unwrap() error { return e.err }

// Config configures a Client
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	baseURL *url.URL
	cache   *cache.Cache
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("error parsing base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scanner-api",
		MaxRequests: 5,
		Interval:    3 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500
			}
			// the request's own context ended
			var ce *callerDoneError
			if errors.As(err, &ce) {
				return true
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker %s changed from %v to %v", name, from, to)
		},
	})

	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cb:      cb,
		baseURL: base,
		cache:   cache.New(cfg.CacheTTL),
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL.String() + "/api/" + strings.Join(escaped, "/")
}

// do executes req through the circuit breaker and decodes a JSON body into
// out. With lenient set, an undecodable 2xx body is not an error.
func (c *Client) do(req *http.Request, out interface{}, lenient bool) error {
	if err := req.Context().Err(); err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	_, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			err = fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
			if req.Context().Err() != nil {
				return nil, &callerDoneError{err: err}
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !lenient {
			err = fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
			if req.Context().Err() != nil {
				return nil, &callerDoneError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (c *Client) get(ctx context.Context, out interface{}, parts ...string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(parts...), nil)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out, false)
}

// ListProjects returns every project. The listing is cached until
// InvalidateProjects or CreateProject.
func (c *Client) ListProjects(ctx context.Context) ([]vuln.ProjectSummary, error) {
	v, err := c.cache.GetOrCreate(ctx, projectsKey, func(ctx context.Context) (interface{}, error) {
		var projects []vuln.ProjectSummary
		if err := c.get(ctx, &projects, "project", "get_all_projects"); err != nil {
			return nil, err
		}
		return projects, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return append([]vuln.ProjectSummary(nil), v.([]vuln.ProjectSummary)...), nil
}

// InvalidateProjects drops the cached project listing
func (c *Client) InvalidateProjects() {
	c.cache.Invalidate(projectsKey)
}

// CreateProjectRequest holds the fields of the create form
type CreateProjectRequest struct {
	Name          string
	SourceURL     string
	DeploymentURL string
	CSVPath       string // optional
}

type createProjectResponse struct {
	ProjectID string `json:"project_id"`
	Message   string `json:"message,omitempty"`
}

// CreateProject submits a new project and returns its id
func (c *Client) CreateProject(ctx context.Context, r CreateProjectRequest) (string, error) {
	if strings.TrimSpace(r.Name) == "" {
		return "", errors.New("project name is required")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"project_name", r.Name},
		{"url", r.SourceURL},
		{"deployment_url", r.DeploymentURL},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}

	if r.CSVPath != "" {
		data, err := os.ReadFile(r.CSVPath)
		if err != nil {
			return "", fmt.Errorf("reading csv file: %w", err)
		}
		part, err := w.CreateFormFile("csv_file", filepath.Base(r.CSVPath))
		if err != nil {
			return "", err
		}
		if _, err := part.Write(data); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("project", "create"), &body)
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp createProjectResponse
	if err := c.do(req, &resp, false); err != nil {
		return "", fmt.Errorf("creating project: %w", err)
	}
	if resp.ProjectID == "" {
		return "", errors.New("creating project: response carried no project id")
	}
	c.cache.Invalidate(projectsKey)
	return resp.ProjectID, nil
}

const projectsKey = "projects"

func projectKey(id string) string {
	return "project:" + id
}

// GetProject fetches a project and its vulnerabilities. Results are cached
// until InvalidateProject is called. Callers asking for the same project at
// once share one request.
func (c *Client) GetProject(ctx context.Context, id string) (*vuln.Project, error) {
	v, err := c.cache.GetOrCreate(ctx, projectKey(id), func(ctx context.Context) (interface{}, error) {
		var p vuln.Project
		if err := c.get(ctx, &p, "project", "get_project", id); err != nil {
			return nil, err
		}
		p.ID = id
		if p.Vulnerabilities == nil {
			p.Vulnerabilities = map[string]vuln.Vulnerability{}
		}
		return &p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", id, err)
	}
	return v.(*vuln.Project), nil
}

// InvalidateProject drops the cached copy of a project
func (c *Client) InvalidateProject(id string) {
	c.cache.Invalidate(projectKey(id))
}

type indexingStatusResponse struct {
	Status vuln.IndexingStatus `json:"status"`
}

// IndexingStatus returns the state of the project's indexing job
func (c *Client) IndexingStatus(ctx context.Context, projectID string) (vuln.IndexingStatus, error) {
	var resp indexingStatusResponse
	if err := c.get(ctx, &resp, "project", "indexing-status", projectID); err != nil {
		return "", fmt.Errorf("fetching indexing status: %w", err)
	}
	return resp.Status, nil
}

// GetVulnerability fetches one finding including its last test
func (c *Client) GetVulnerability(ctx context.Context, projectID, vulnID string) (*vuln.Vulnerability, error) {
	var v vuln.Vulnerability
	if err := c.get(ctx, &v, "vulnerabilities", "get-vulnerability", projectID, vulnID); err != nil {
		return nil, fmt.Errorf("fetching vulnerability %s: %w", vulnID, err)
	}
	if v.ID == "" {
		v.ID = vulnID
	}
	return &v, nil
}

type testRequest struct {
	ProjectID       string `json:"project_id"`
	VulnerabilityID string `json:"vulnerability_id"`
}

// TestTicket is the agent's acknowledgement of a test invocation
type TestTicket struct {
	TaskID string `json:"task_id,omitempty"`
	Status string `json:"status,omitempty"`
}

// InvokeTest asks the pentest agent to test one vulnerability. The test runs
// asynchronously on the server.
func (c *Client) InvokeTest(ctx context.Context, projectID, vulnID string) (*TestTicket, error) {
	payload, err := json.Marshal(testRequest{ProjectID: projectID, VulnerabilityID: vulnID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("agent", "pentest", "test"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var ticket TestTicket
	if err := c.do(req, &ticket, true); err != nil {
		return nil, fmt.Errorf("invoking test for %s: %w", vulnID, err)
	}
	return &ticket, nil
}
