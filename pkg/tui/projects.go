package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/vuln"
)

type projectsLoadedMsg struct {
	viewID   int
	projects []vuln.ProjectSummary
	err      error
}

// ProjectsView lists every project; the first row opens the create form
type ProjectsView struct {
	id      int
	backend Backend
	ctx     context.Context
	cancel  context.CancelFunc

	query    QueryState
	projects []vuln.ProjectSummary
	cursor   int
	spinner  spinner.Model
}

// NewProjectsView creates the project list page
func NewProjectsView(backend Backend) *ProjectsView {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return &ProjectsView{
		id:      nextViewID(),
		backend: backend,
		ctx:     ctx,
		cancel:  cancel,
		query:   QueryLoading,
		spinner: s,
	}
}

func (v *ProjectsView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.load)
}

func (v *ProjectsView) load() tea.Msg {
	projects, err := v.backend.ListProjects(v.ctx)
	return projectsLoadedMsg{viewID: v.id, projects: projects, err: err}
}

func (v *ProjectsView) Close()        { v.cancel() }
func (v *ProjectsView) Title() string { return "Projects" }

// Query returns the state of the fetch
func (v *ProjectsView) Query() QueryState { return v.query }

func (v *ProjectsView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.projects) {
				v.cursor++
			}
		case "n":
			return navigate(Route{Name: RouteNewProject}.Path())
		case "r":
			v.backend.InvalidateProjects()
			v.query = QueryLoading
			return v.load
		case "enter":
			if v.cursor == 0 {
				return navigate(Route{Name: RouteNewProject}.Path())
			}
			if v.query == QueryReady && v.cursor <= len(v.projects) {
				return navigate(ProjectRoute(v.projects[v.cursor-1].ID).Path())
			}
		}

	case projectsLoadedMsg:
		if msg.viewID != v.id {
			return nil
		}
		if msg.err != nil {
			logger.Error("list projects: %v", msg.err)
			v.query = QueryFailed
			return nil
		}
		v.projects = msg.projects
		v.query = QueryReady
		if v.cursor > len(v.projects) {
			v.cursor = len(v.projects)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (v *ProjectsView) View() string {
	switch v.query {
	case QueryLoading:
		return v.spinner.View() + " Loading projects"
	case QueryFailed:
		return lipgloss.JoinVertical(lipgloss.Left,
			StyleError.Render(genericErrorMessage),
			StyleHelp.Render("r retry • n new project • q quit"),
		)
	}

	var b strings.Builder
	b.WriteString(StyleHeading.Render(fmt.Sprintf("Projects (%d)", len(v.projects))))
	b.WriteString("\n\n")

	rows := make([]string, 0, len(v.projects)+1)
	rows = append(rows, lipgloss.NewStyle().Foreground(ColorSuccess).Render("+ New project"))
	for _, p := range v.projects {
		name := p.Name
		if name == "" {
			name = StyleSubtle.Render("(unnamed)")
		}
		rows = append(rows, fmt.Sprintf("%s  %s", name, StyleSubtle.Render(p.ID)))
	}
	for i, row := range rows {
		if i == v.cursor {
			b.WriteString(StyleFocused.Render(IconCursor) + " " + row)
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}
	if len(v.projects) == 0 {
		b.WriteString(StyleSubtle.Render("  No projects yet"))
		b.WriteString("\n")
	}

	b.WriteString(StyleHelp.Render("↑/↓ move • enter open • n new • r refresh • q quit"))
	return b.String()
}
