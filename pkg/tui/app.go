package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/logger"
)

// page is one routed view
type page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	Title() string
	Close()
}

// textCapturer is implemented by pages whose keys go to text inputs
type textCapturer interface {
	CapturesText() bool
}

// notFoundPage renders an unknown route
type notFoundPage struct{ path string }

func (p notFoundPage) Init() tea.Cmd { return nil }
func (p notFoundPage) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && (k.String() == "esc" || k.String() == "enter") {
		return redirect(Route{Name: RouteProjects}.Path())
	}
	return nil
}
func (p notFoundPage) View() string {
	return StyleError.Render(fmt.Sprintf("Page not found: %s", p.path)) + "\n" +
		StyleHelp.Render("enter go to projects • q quit")
}
func (p notFoundPage) Title() string { return "Not found" }
func (p notFoundPage) Close()        {}

// App is the root model. It routes between pages and keeps a history stack
// for back navigation.
type App struct {
	backend Backend
	opts    Options

	route   Route
	history []Route
	current page

	width  int
	height int
}

// NewApp creates the root model starting at path
func NewApp(backend Backend, opts Options, path string) App {
	a := App{backend: backend, opts: opts.withDefaults()}
	a.route = ParseRoute(path)
	a.current = a.build(a.route)
	return a
}

// Route returns the current location
func (a App) Route() Route { return a.route }

// Current returns the active page
func (a App) Current() page { return a.current }

func (a App) build(r Route) page {
	switch r.Name {
	case RouteProjects:
		return NewProjectsView(a.backend)
	case RouteNewProject:
		return NewCreateView(a.backend)
	case RouteProject:
		return NewProjectView(a.backend, r.ProjectID, a.opts)
	case RouteDetail:
		return NewDetailView(a.backend, r.ProjectID, r.ErrorID)
	default:
		return notFoundPage{path: r.Raw}
	}
}

// Init starts the first page
func (a App) Init() tea.Cmd {
	return a.current.Init()
}

func (a App) switchTo(r Route) (App, tea.Cmd) {
	a.current.Close()
	logger.Debug("navigate %s -> %s", a.route.Path(), r.Path())

	a.route = r
	a.current = a.build(r)

	cmds := []tea.Cmd{a.current.Init()}
	if a.width > 0 {
		cmds = append(cmds, a.current.Update(tea.WindowSizeMsg{Width: a.width, Height: a.contentHeight()}))
	}
	return a, tea.Batch(cmds...)
}

func (a App) contentHeight() int {
	return max(a.height-2, 1)
}

// Update routes navigation and forwards everything else to the page
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.current.Close()
			return a, tea.Quit
		case "q":
			if tc, ok := a.current.(textCapturer); !ok || !tc.CapturesText() {
				a.current.Close()
				return a, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, a.current.Update(tea.WindowSizeMsg{Width: msg.Width, Height: a.contentHeight()})

	case navigateMsg:
		next := ParseRoute(msg.path)
		if !msg.replace {
			a.history = append(a.history, a.route)
		}
		return a.switchTo(next)

	case backMsg:
		if len(a.history) == 0 {
			if a.route.Name == RouteProjects {
				return a, nil
			}
			return a.switchTo(Route{Name: RouteProjects})
		}
		prev := a.history[len(a.history)-1]
		a.history = a.history[:len(a.history)-1]
		return a.switchTo(prev)
	}

	return a, a.current.Update(msg)
}

// View renders the header breadcrumb and the page
func (a App) View() string {
	header := StyleTitle.Render("vulndash") + StyleSubtle.Render(" › "+a.current.Title()+"  "+a.route.Path())
	return lipgloss.JoinVertical(lipgloss.Left, header, "", a.current.View())
}

// Run starts the dashboard on path and blocks until the user quits
func Run(backend Backend, opts Options, path string) error {
	p := tea.NewProgram(NewApp(backend, opts, path), tea.WithAltScreen())
	final, err := p.Run()
	if a, ok := final.(App); ok {
		a.current.Close()
	}
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
