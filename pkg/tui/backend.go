package tui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vulndash/vulndash/pkg/api"
	"github.com/vulndash/vulndash/pkg/pentest"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// Backend is the subset of *api.Client the views use
type Backend interface {
	pentest.Invoker
	ListProjects(ctx context.Context) ([]vuln.ProjectSummary, error)
	InvalidateProjects()
	CreateProject(ctx context.Context, r api.CreateProjectRequest) (string, error)
	GetProject(ctx context.Context, id string) (*vuln.Project, error)
	InvalidateProject(id string)
	IndexingStatus(ctx context.Context, projectID string) (vuln.IndexingStatus, error)
	GetVulnerability(ctx context.Context, projectID, vulnID string) (*vuln.Vulnerability, error)
}

// Options tunes the refresh cadence of the views
type Options struct {
	Poll             pentest.PollConfig
	IndexingInterval time.Duration
}

// DefaultIndexingInterval is how often a project page re-reads indexing status
const DefaultIndexingInterval = 5 * time.Second

func (o Options) withDefaults() Options {
	if o.Poll.Interval <= 0 || o.Poll.Attempts <= 0 {
		def := pentest.DefaultPollConfig()
		if o.Poll.Interval <= 0 {
			o.Poll.Interval = def.Interval
		}
		if o.Poll.Attempts <= 0 {
			o.Poll.Attempts = def.Attempts
		}
	}
	if o.IndexingInterval <= 0 {
		o.IndexingInterval = DefaultIndexingInterval
	}
	return o
}

// QueryState is the lifecycle of a view's primary fetch
type QueryState int

const (
	QueryLoading QueryState = iota
	QueryFailed
	QueryReady
)

func (q QueryState) String() string {
	switch q {
	case QueryLoading:
		return "loading"
	case QueryFailed:
		return "failed"
	default:
		return "ready"
	}
}

const genericErrorMessage = "An error has occurred!"

// viewSeq tags async messages with the view that issued them so a message
// arriving after navigation is dropped by the next view.
var viewSeq int64

func nextViewID() int {
	return int(atomic.AddInt64(&viewSeq, 1))
}

// Navigation messages understood by App
type navigateMsg struct {
	path    string
	replace bool
}

type backMsg struct{}

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

func redirect(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path, replace: true} }
}

func back() tea.Msg { return backMsg{} }
