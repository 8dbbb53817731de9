package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// Last-test messages
const (
	MsgNotTested      = "Vulnerability not tested yet"
	MsgTestFailed     = "Failed to test the vulnerability"
	MsgNotExploitable = "This vulnerability was not exploitable"
)

type vulnLoadedMsg struct {
	viewID int
	vuln   *vuln.Vulnerability
	err    error
}

// DetailView shows one vulnerability and the result of its last test
type DetailView struct {
	id        int
	projectID string
	vulnID    string
	backend   Backend
	ctx       context.Context
	cancel    context.CancelFunc

	query    QueryState
	vuln     *vuln.Vulnerability
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	width    int
}

// NewDetailView creates the page for one vulnerability
func NewDetailView(backend Backend, projectID, vulnID string) *DetailView {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return &DetailView{
		id:        nextViewID(),
		projectID: projectID,
		vulnID:    vulnID,
		backend:   backend,
		ctx:       ctx,
		cancel:    cancel,
		query:     QueryLoading,
		spinner:   s,
		viewport:  viewport.New(80, 20),
		width:     80,
	}
}

func (v *DetailView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.load)
}

func (v *DetailView) load() tea.Msg {
	item, err := v.backend.GetVulnerability(v.ctx, v.projectID, v.vulnID)
	return vulnLoadedMsg{viewID: v.id, vuln: item, err: err}
}

func (v *DetailView) Close() { v.cancel() }

func (v *DetailView) Title() string {
	if v.vuln != nil {
		return v.vuln.Label()
	}
	return "Vulnerability"
}

// Query returns the state of the fetch
func (v *DetailView) Query() QueryState { return v.query }

func (v *DetailView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "backspace", "b":
			return back
		case "r":
			v.query = QueryLoading
			return v.load
		}
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return cmd

	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.viewport.Width = msg.Width
		v.viewport.Height = max(msg.Height-4, 5)
		if v.vuln != nil {
			v.viewport.SetContent(RenderVulnerability(*v.vuln, v.width))
		}

	case vulnLoadedMsg:
		if msg.viewID != v.id {
			return nil
		}
		if msg.err != nil {
			logger.Error("load vulnerability %s/%s: %v", v.projectID, v.vulnID, msg.err)
			v.query = QueryFailed
			return nil
		}
		v.vuln = msg.vuln
		v.query = QueryReady
		v.viewport.SetContent(RenderVulnerability(*v.vuln, v.width))
		v.viewport.GotoTop()

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (v *DetailView) View() string {
	switch v.query {
	case QueryLoading:
		return v.spinner.View() + " Loading vulnerability"
	case QueryFailed:
		return lipgloss.JoinVertical(lipgloss.Left,
			StyleError.Render(genericErrorMessage),
			StyleHelp.Render("r retry • esc back • q quit"),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		v.viewport.View(),
		StyleHelp.Render("↑/↓ scroll • r refresh • esc back • q quit"),
	)
}

// RenderVulnerability renders the full detail text for v
func RenderVulnerability(v vuln.Vulnerability, width int) string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(v.Label()))
	b.WriteString("  ")
	b.WriteString(SeverityBadge(v.Severity))
	b.WriteString("  ")
	b.WriteString(StatusBadge(v.Status, ""))
	b.WriteString("\n")
	if v.Title != "" {
		b.WriteString(StyleHeading.Render(v.Title))
		b.WriteString("\n")
	}
	if fb := FileBadge(v.FileKey); fb != "" {
		b.WriteString(fb)
		b.WriteString("\n")
	}

	if lines := v.DetailLines(); len(lines) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleHeading.Render("Details"))
		b.WriteString("\n")
		wrap := lipgloss.NewStyle().Width(max(width-2, 20))
		for _, line := range lines {
			b.WriteString(wrap.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleHeading.Render("Last test"))
	b.WriteString("\n")
	b.WriteString(RenderLastTest(v.LastTest))
	return b.String()
}

// RenderLastTest renders the outcome of the last pentest run. Remediation,
// line and suggestion are only read for exploitable results.
func RenderLastTest(t *vuln.LastTest) string {
	if t == nil {
		return StyleSubtle.Render(MsgNotTested)
	}
	if t.Result == nil {
		msg := StyleError.Render(MsgTestFailed)
		if t.Error != "" {
			msg += "\n" + StyleSubtle.Render(t.Error)
		}
		return msg
	}
	r := t.Result
	if !r.Exploitable {
		return lipgloss.NewStyle().Foreground(ColorSuccess).Render(MsgNotExploitable)
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(ColorDanger).Bold(true).Render("Exploitable"))
	b.WriteString("\n\n")
	if r.Suggestion != "" {
		b.WriteString(StyleHeading.Render("Suggestion"))
		b.WriteString("\n")
		b.WriteString(r.Suggestion)
		b.WriteString("\n\n")
	}
	if r.Remediation != "" {
		b.WriteString(StyleHeading.Render("Remediation"))
		b.WriteString("\n")
		b.WriteString(r.Remediation)
		b.WriteString("\n\n")
	}
	b.WriteString(fmt.Sprintf("Vulnerability found on line %d", r.LineNumber))

	if ctxLines := r.ParseContext(); len(ctxLines) > 0 {
		b.WriteString("\n\n")
		for _, l := range ctxLines {
			if l.Highlight {
				b.WriteString(StyleHighlightLine.Render(l.Text))
			} else {
				b.WriteString(l.Text)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
