package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/pentest"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// Focus slots inside the filter bar
const (
	barSeverity = iota
	barStatus
	barTest
	barSlots
)

// FilterIntent is what a key pressed on the bar asks the page to do
type FilterIntent struct {
	Severities SelectionUpdate
	Statuses   SelectionUpdate
	Test       bool
}

// testStartedMsg carries the outcome of a test invocation sequence and the
// poll it started.
type testStartedMsg struct {
	viewID   int
	run      int
	outcomes []pentest.Outcome
	handle   *pentest.Handle
	ticks    <-chan int
}

type pollTickMsg struct {
	viewID  int
	run     int
	attempt int
}

type pollDoneMsg struct {
	viewID int
	run    int
}

// FilterBar holds the severity and status pickers and the Test action. It
// owns the background poll started by a test run.
type FilterBar struct {
	Severity *MultiSelect
	Status   *MultiSelect

	focus   int
	focused bool

	backend   Backend
	projectID string
	poll      pentest.PollConfig

	run      int
	handle   *pentest.Handle
	ticks    <-chan int
	invoking bool
	polling  bool
	notice   string
}

func severityOptions() []Option {
	opts := make([]Option, 0, len(vuln.Severities))
	for _, s := range vuln.Severities {
		s := s
		opts = append(opts, Option{Value: string(s), Render: func() string { return SeverityBadge(s) }})
	}
	return opts
}

func statusOptions() []Option {
	statuses := []vuln.Status{
		vuln.StatusNotStarted,
		vuln.StatusQueued,
		vuln.StatusPending,
		vuln.StatusCompleted,
		vuln.StatusProcessing,
		vuln.StatusFailed,
		vuln.StatusDetected,
		vuln.StatusFinished,
	}
	opts := make([]Option, 0, len(statuses))
	for _, s := range statuses {
		s := s
		opts = append(opts, Option{Value: string(s), Render: func() string { return StatusBadge(s, "") }})
	}
	return opts
}

// NewFilterBar creates the bar for one project page
func NewFilterBar(backend Backend, projectID string, poll pentest.PollConfig) *FilterBar {
	return &FilterBar{
		Severity:  NewMultiSelect("Severity", severityOptions()),
		Status:    NewMultiSelect("Status", statusOptions()),
		backend:   backend,
		projectID: projectID,
		poll:      poll,
	}
}

// SetWidth splits the available width between the two pickers
func (b *FilterBar) SetWidth(total int) {
	w := (total - 16) / 2
	if w > 40 {
		w = 40
	}
	b.Severity.SetWidth(w)
	b.Status.SetWidth(w)
}

// Focus gives the bar keyboard focus on its first slot
func (b *FilterBar) Focus() {
	b.focused = true
	b.setSlot(barSeverity)
}

// Blur removes keyboard focus
func (b *FilterBar) Blur() {
	b.focused = false
	b.Severity.Blur()
	b.Status.Blur()
}

// Focused reports whether the bar has keyboard focus
func (b *FilterBar) Focused() bool { return b.focused }

// DropdownOpen reports whether either picker is expanded
func (b *FilterBar) DropdownOpen() bool {
	return b.Severity.IsOpen() || b.Status.IsOpen()
}

func (b *FilterBar) setSlot(slot int) {
	b.focus = slot
	b.Severity.Blur()
	b.Status.Blur()
	switch slot {
	case barSeverity:
		b.Severity.Focus()
	case barStatus:
		b.Status.Focus()
	}
}

// Next moves focus to the next slot; false means focus left the bar
func (b *FilterBar) Next() bool {
	if b.focus+1 >= barSlots {
		b.Blur()
		return false
	}
	b.setSlot(b.focus + 1)
	return true
}

// Busy reports whether invocations are in flight
func (b *FilterBar) Busy() bool { return b.invoking }

// Polling reports whether a background refresh is running
func (b *FilterBar) Polling() bool { return b.polling }

// Update handles a key while the bar is focused
func (b *FilterBar) Update(msg tea.KeyMsg) FilterIntent {
	if !b.focused {
		return FilterIntent{}
	}

	if !b.DropdownOpen() {
		switch msg.String() {
		case "left", "h":
			if b.focus > 0 {
				b.setSlot(b.focus - 1)
			}
			return FilterIntent{}
		case "right", "l":
			if b.focus < barSlots-1 {
				b.setSlot(b.focus + 1)
			}
			return FilterIntent{}
		}
	}

	switch b.focus {
	case barSeverity:
		return FilterIntent{Severities: b.Severity.Update(msg)}
	case barStatus:
		return FilterIntent{Statuses: b.Status.Update(msg)}
	case barTest:
		if s := msg.String(); s == "enter" || s == " " {
			return FilterIntent{Test: true}
		}
	}
	return FilterIntent{}
}

// StartTest stops any running poll and returns the command that invokes a
// test for every id in order and then starts polling the project.
func (b *FilterBar) StartTest(ctx context.Context, viewID int, ids []string) tea.Cmd {
	if len(ids) == 0 || b.invoking {
		return nil
	}

	b.StopPoll()
	b.run++
	b.invoking = true
	b.notice = fmt.Sprintf("Sending %d test request(s)...", len(ids))

	run := b.run
	backend, projectID, cfg := b.backend, b.projectID, b.poll
	ids = append([]string(nil), ids...)
	ticks := make(chan int, 1)

	refresh := func(ctx context.Context, attempt int) error {
		backend.InvalidateProject(projectID)
		_, err := backend.GetProject(ctx, projectID)
		select {
		case ticks <- attempt:
		default:
		}
		return err
	}

	return func() tea.Msg {
		outcomes, handle := pentest.Run(ctx, backend, projectID, ids, cfg, refresh)
		return testStartedMsg{viewID: viewID, run: run, outcomes: outcomes, handle: handle, ticks: ticks}
	}
}

// handleStarted records the poll started by a test run. It returns the
// command waiting for the first tick, or nil for a stale run.
func (b *FilterBar) handleStarted(ctx context.Context, msg testStartedMsg) tea.Cmd {
	if msg.run != b.run {
		msg.handle.Stop()
		return nil
	}

	b.invoking = false
	b.handle = msg.handle
	b.ticks = msg.ticks
	b.polling = true

	failed := pentest.Failed(msg.outcomes)
	b.notice = fmt.Sprintf("Sent %d test request(s)", len(msg.outcomes)-failed)
	if failed > 0 {
		b.notice += fmt.Sprintf(", %d failed (see log)", failed)
		logger.Warn("%d of %d test invocations failed for project %s", failed, len(msg.outcomes), b.projectID)
	}
	return waitForPoll(ctx, msg.viewID, msg.run, msg.ticks, msg.handle)
}

// handleTick returns the command waiting for the next tick, or nil when msg
// belongs to an earlier run.
func (b *FilterBar) handleTick(ctx context.Context, msg pollTickMsg) tea.Cmd {
	if msg.run != b.run || b.handle == nil {
		return nil
	}
	return waitForPoll(ctx, msg.viewID, msg.run, b.ticks, b.handle)
}

func (b *FilterBar) handleDone(msg pollDoneMsg) {
	if msg.run == b.run {
		b.polling = false
	}
}

// StopPoll cancels the running poll, if any
func (b *FilterBar) StopPoll() {
	b.handle.Stop()
	b.handle = nil
	b.ticks = nil
	b.polling = false
}

func waitForPoll(ctx context.Context, viewID, run int, ticks <-chan int, h *pentest.Handle) tea.Cmd {
	return func() tea.Msg {
		select {
		case attempt := <-ticks:
			return pollTickMsg{viewID: viewID, run: run, attempt: attempt}
		case <-h.Done():
			return pollDoneMsg{viewID: viewID, run: run}
		case <-ctx.Done():
			return nil
		}
	}
}

// View renders the pickers and the Test button; the button is enabled only
// when selected is non-zero.
func (b *FilterBar) View(f filterValues, selected int, spin string) string {
	label := fmt.Sprintf("Test (%d)", selected)
	btn := StyleButtonDisabled.Render(label)
	if selected > 0 && !b.invoking {
		btn = StyleButton.Render(label)
	}
	if b.invoking {
		btn = StyleButtonDisabled.Render(spin + " Testing")
	}
	if b.focused && b.focus == barTest {
		btn = StyleFocused.Render(IconCursor) + " " + btn
	} else {
		btn = "  " + btn
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		b.Severity.View(f.severities), " ",
		b.Status.View(f.statuses), " ",
		lipgloss.NewStyle().MarginTop(1).Render(btn),
	)

	status := b.notice
	if b.polling {
		status = spin + " refreshing results " + StyleSubtle.Render(status)
	}
	if status == "" {
		return row
	}
	return lipgloss.JoinVertical(lipgloss.Left, row, StyleSubtle.Render(status))
}

// filterValues are the selected values of each picker
type filterValues struct {
	severities []string
	statuses   []string
}
