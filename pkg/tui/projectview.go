package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/state"
	"github.com/vulndash/vulndash/pkg/vuln"
)

type projectLoadedMsg struct {
	viewID  int
	project *vuln.Project
	err     error
	refresh bool
}

type indexingMsg struct {
	viewID int
	status vuln.IndexingStatus
	err    error
}

type indexingTickMsg struct {
	viewID int
}

// ProjectView is the page of one project: severity chart, filter bar and
// the selectable vulnerability list.
type ProjectView struct {
	id        int
	projectID string
	backend   Backend
	opts      Options
	ctx       context.Context
	cancel    context.CancelFunc

	query   QueryState
	project *vuln.Project
	all     []vuln.Vulnerability
	visible []vuln.Vulnerability
	counts  []state.SeverityCount

	filter    state.Filter
	selection state.Selection

	indexing   vuln.IndexingStatus
	indexingOK bool

	bar     *FilterBar
	list    *VulnList
	spinner spinner.Model
	width   int
	height  int
}

// NewProjectView creates the page for projectID
func NewProjectView(backend Backend, projectID string, opts Options) *ProjectView {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	v := &ProjectView{
		id:        nextViewID(),
		projectID: projectID,
		backend:   backend,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		query:     QueryLoading,
		selection: state.NewSelection(),
		bar:       NewFilterBar(backend, projectID, opts.Poll),
		list:      NewVulnList(),
		spinner:   s,
	}
	v.list.Focus()
	return v
}

// Init starts the project and indexing fetches
func (v *ProjectView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.loadProject, v.loadIndexing)
}

func (v *ProjectView) loadProject() tea.Msg {
	p, err := v.backend.GetProject(v.ctx, v.projectID)
	return projectLoadedMsg{viewID: v.id, project: p, err: err}
}

func (v *ProjectView) refreshProject() tea.Msg {
	p, err := v.backend.GetProject(v.ctx, v.projectID)
	return projectLoadedMsg{viewID: v.id, project: p, err: err, refresh: true}
}

func (v *ProjectView) loadIndexing() tea.Msg {
	st, err := v.backend.IndexingStatus(v.ctx, v.projectID)
	return indexingMsg{viewID: v.id, status: st, err: err}
}

func (v *ProjectView) indexingTick() tea.Cmd {
	if v.ctx.Err() != nil {
		return nil
	}
	id := v.id
	return tea.Tick(v.opts.IndexingInterval, func(time.Time) tea.Msg {
		return indexingTickMsg{viewID: id}
	})
}

// Close cancels in-flight requests and stops polling
func (v *ProjectView) Close() {
	v.cancel()
	v.bar.StopPoll()
}

// Query returns the state of the project fetch
func (v *ProjectView) Query() QueryState { return v.query }

// Visible returns the filtered, ordered vulnerabilities
func (v *ProjectView) Visible() []vuln.Vulnerability { return v.visible }

// Selection returns the current selection
func (v *ProjectView) Selection() state.Selection { return v.selection }

// Filter returns the current filter
func (v *ProjectView) Filter() state.Filter { return v.filter }

func (v *ProjectView) recompute() {
	v.visible = state.Apply(v.filter, v.all)
	v.counts = state.CountBySeverity(v.visible)
}

func (v *ProjectView) applyFilter(in FilterIntent) tea.Cmd {
	if in.Severities != nil {
		v.filter = v.filter.WithSeverities(in.Severities(v.filter.SeverityValues()))
		v.recompute()
	}
	if in.Statuses != nil {
		v.filter = v.filter.WithStatuses(in.Statuses(v.filter.StatusValues()))
		v.recompute()
	}
	if in.Test {
		return v.startTest()
	}
	return nil
}

func (v *ProjectView) applyList(in ListIntent) tea.Cmd {
	switch in.Action {
	case ListToggleRow:
		v.selection = v.selection.Toggle(in.ID)
	case ListToggleAll:
		if len(v.visible) == 0 {
			return nil
		}
		if HeaderChecked(v.visible, v.selection) {
			v.selection = v.selection.Clear()
		} else {
			v.selection = v.selection.SelectAll(state.IDs(v.visible))
		}
	case ListOpen:
		return navigate(DetailRoute(v.projectID, in.ID).Path())
	}
	return nil
}

func (v *ProjectView) startTest() tea.Cmd {
	if v.selection.Empty() {
		return nil
	}
	return v.bar.StartTest(v.ctx, v.id, v.selection.IDs())
}

func (v *ProjectView) cycleFocus() {
	if v.list.Focused() {
		v.list.Blur()
		v.bar.Focus()
		return
	}
	if !v.bar.Next() {
		v.list.Focus()
	}
}

// Update handles one message and resizes the list to the space left under
// the header
func (v *ProjectView) Update(msg tea.Msg) tea.Cmd {
	cmd := v.update(msg)
	v.layout()
	return cmd
}

func (v *ProjectView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.bar.SetWidth(msg.Width)

	case projectLoadedMsg:
		if msg.viewID != v.id {
			return nil
		}
		if msg.err != nil {
			if msg.refresh && v.query == QueryReady {
				logger.Warn("refresh of project %s failed: %v", v.projectID, msg.err)
				return nil
			}
			logger.Error("load project %s: %v", v.projectID, msg.err)
			v.query = QueryFailed
			return nil
		}
		v.project = msg.project
		v.all = msg.project.Sorted()
		v.query = QueryReady
		v.recompute()

	case indexingMsg:
		if msg.viewID != v.id {
			return nil
		}
		if msg.err != nil {
			logger.Debug("indexing status for %s: %v", v.projectID, msg.err)
			v.indexingOK = false
		} else {
			v.indexing = msg.status
			v.indexingOK = true
		}
		return v.indexingTick()

	case indexingTickMsg:
		if msg.viewID != v.id || v.ctx.Err() != nil {
			return nil
		}
		return v.loadIndexing

	case testStartedMsg:
		if msg.viewID != v.id {
			msg.handle.Stop()
			return nil
		}
		return tea.Batch(v.bar.handleStarted(v.ctx, msg), v.refreshProject)

	case pollTickMsg:
		if msg.viewID != v.id {
			return nil
		}
		next := v.bar.handleTick(v.ctx, msg)
		if next == nil {
			return nil
		}
		return tea.Batch(next, v.refreshProject)

	case pollDoneMsg:
		if msg.viewID == v.id {
			v.bar.handleDone(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (v *ProjectView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.bar.DropdownOpen() {
		return v.applyFilter(v.bar.Update(msg))
	}

	switch msg.String() {
	case "tab":
		v.cycleFocus()
		return nil
	case "t":
		return v.startTest()
	case "r":
		v.backend.InvalidateProject(v.projectID)
		if v.query != QueryReady {
			v.query = QueryLoading
			return v.loadProject
		}
		return v.refreshProject
	case "c":
		v.filter = state.Filter{}
		v.recompute()
		return nil
	case "esc", "backspace":
		return back
	}

	if v.query != QueryReady {
		return nil
	}
	if v.bar.Focused() {
		return v.applyFilter(v.bar.Update(msg))
	}
	return v.applyList(v.list.Update(msg, v.visible))
}

// View renders the page for the current query state
func (v *ProjectView) View() string {
	switch v.query {
	case QueryLoading:
		return v.spinner.View() + " Loading project"
	case QueryFailed:
		return lipgloss.JoinVertical(lipgloss.Left,
			StyleError.Render(genericErrorMessage),
			StyleHelp.Render("r retry • esc back • q quit"),
		)
	}

	spin := v.spinner.View()
	sections := append(v.header(spin), "", v.list.View(v.visible, v.selection, spin), StyleHelp.Render(projectHelp))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

const projectHelp = "tab focus • space select • a select all • enter open • t test • c clear filters • r refresh • esc back • q quit"

func (v *ProjectView) header(spin string) []string {
	title := StyleTitle.Render(v.project.Name)
	if v.indexingOK {
		title += "   " + StyleSubtle.Render("Indexing:") + " " + IndexingBadge(v.indexing, spin)
	}

	return []string{
		title,
		"",
		SeverityChart(v.counts, min(v.width, 80)),
		"",
		v.bar.View(filterValues{
			severities: v.filter.SeverityValues(),
			statuses:   v.filter.StatusValues(),
		}, v.selection.Len(), spin),
	}
}

func (v *ProjectView) layout() {
	if v.height <= 0 || v.query != QueryReady {
		return
	}
	used := lipgloss.Height(StyleHelp.Render(projectHelp)) + 3
	for _, s := range v.header(v.spinner.View()) {
		used += lipgloss.Height(s)
	}
	v.list.SetSize(v.width, v.height-used)
}

// Title names the page in the header
func (v *ProjectView) Title() string {
	if v.project != nil {
		return fmt.Sprintf("Project · %s", v.project.Name)
	}
	return "Project"
}
