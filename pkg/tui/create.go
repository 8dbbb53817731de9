package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/api"
	"github.com/vulndash/vulndash/pkg/logger"
)

// Form fields
const (
	fieldName = iota
	fieldURL
	fieldDeploymentURL
	fieldCSV
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Project name",
	"Source URL",
	"Deployment URL",
	"Findings CSV (optional)",
}

type projectCreatedMsg struct {
	viewID int
	id     string
	err    error
}

// CreateView is the new-project form
type CreateView struct {
	id      int
	backend Backend
	ctx     context.Context
	cancel  context.CancelFunc

	inputs     [fieldCount]textinput.Model
	focus      int
	submitting bool
	err        error
	spinner    spinner.Model
}

// NewCreateView creates an empty form
func NewCreateView(backend Backend) *CreateView {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	v := &CreateView{
		id:      nextViewID(),
		backend: backend,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
	}

	placeholders := [fieldCount]string{
		"my-service",
		"https://github.com/org/repo",
		"https://staging.example.com",
		"./findings.csv",
	}
	for i := range v.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 512
		ti.Width = 50
		v.inputs[i] = ti
	}
	v.inputs[fieldName].Focus()
	return v
}

func (v *CreateView) Init() tea.Cmd { return textinput.Blink }

func (v *CreateView) Close()             { v.cancel() }
func (v *CreateView) Title() string      { return "New project" }
func (v *CreateView) CapturesText() bool { return true }

// SetValue fills a form field; used by tests and CLI prefill
func (v *CreateView) SetValue(field int, value string) {
	if field >= 0 && field < fieldCount {
		v.inputs[field].SetValue(value)
	}
}

// Request builds the create request from the form
func (v *CreateView) Request() api.CreateProjectRequest {
	return api.CreateProjectRequest{
		Name:          strings.TrimSpace(v.inputs[fieldName].Value()),
		SourceURL:     strings.TrimSpace(v.inputs[fieldURL].Value()),
		DeploymentURL: strings.TrimSpace(v.inputs[fieldDeploymentURL].Value()),
		CSVPath:       strings.TrimSpace(v.inputs[fieldCSV].Value()),
	}
}

// Validate checks the required fields
func Validate(r api.CreateProjectRequest) error {
	if r.Name == "" {
		return errors.New("project name is required")
	}
	for _, u := range []struct{ label, value string }{
		{"source URL", r.SourceURL},
		{"deployment URL", r.DeploymentURL},
	} {
		if u.value == "" {
			return fmt.Errorf("%s is required", u.label)
		}
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", u.label)
		}
	}
	return nil
}

func (v *CreateView) setFocus(i int) tea.Cmd {
	v.inputs[v.focus].Blur()
	v.focus = (i + fieldCount) % fieldCount
	return v.inputs[v.focus].Focus()
}

func (v *CreateView) submit() tea.Cmd {
	req := v.Request()
	if err := Validate(req); err != nil {
		v.err = err
		return nil
	}
	v.err = nil
	v.submitting = true

	id := v.id
	ctx, backend := v.ctx, v.backend
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		pid, err := backend.CreateProject(ctx, req)
		return projectCreatedMsg{viewID: id, id: pid, err: err}
	})
}

func (v *CreateView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.submitting {
			return nil
		}
		switch msg.String() {
		case "esc":
			return back
		case "tab", "down":
			return v.setFocus(v.focus + 1)
		case "shift+tab", "up":
			return v.setFocus(v.focus - 1)
		case "ctrl+s":
			return v.submit()
		case "enter":
			if v.focus == fieldCount-1 {
				return v.submit()
			}
			return v.setFocus(v.focus + 1)
		}

	case projectCreatedMsg:
		if msg.viewID != v.id {
			return nil
		}
		v.submitting = false
		if msg.err != nil {
			logger.Error("create project: %v", msg.err)
			v.err = fmt.Errorf("could not create project: %w", msg.err)
			return nil
		}
		logger.Info("created project %s", msg.id)
		return redirect(ProjectRoute(msg.id).Path())

	case spinner.TickMsg:
		if !v.submitting {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return cmd
}

func (v *CreateView) View() string {
	var b strings.Builder
	b.WriteString(StyleHeading.Render("Create a project"))
	b.WriteString("\n\n")

	for i, in := range v.inputs {
		label := fieldLabels[i]
		if i == v.focus {
			label = StyleFocused.Render(label)
		} else {
			label = StyleSubtle.Render(label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}

	switch {
	case v.submitting:
		b.WriteString(v.spinner.View() + " Creating project...")
	case v.err != nil:
		b.WriteString(StyleError.Render(v.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(StyleHelp.Render("tab next field • enter on last field or ctrl+s submit • esc back"))
	return b.String()
}
