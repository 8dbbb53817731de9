package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// Agent simulates the indexing job and the pentest agent. Jobs advance one
// status per step on background goroutines that stop on Close.
type Agent struct {
	store *Store
	cfg   AgentConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAgent creates an agent writing to store
func NewAgent(store *Store, cfg AgentConfig) *Agent {
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = DefaultConfig().Agent.StepDelay
	}
	if cfg.IndexingDelay <= 0 {
		cfg.IndexingDelay = DefaultConfig().Agent.IndexingDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{store: store, cfg: cfg, ctx: ctx, cancel: cancel}
}

// Close stops every running job and waits for them to exit
func (a *Agent) Close() {
	a.cancel()
	a.wg.Wait()
}

func (a *Agent) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-a.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// StartIndexing moves a project through not_started, processing and
// completed.
func (a *Agent) StartIndexing(projectID string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for _, st := range []vuln.IndexingStatus{vuln.IndexingProcessing, vuln.IndexingCompleted} {
			if !a.sleep(a.cfg.IndexingDelay) {
				return
			}
			if err := a.store.SetIndexingStatus(a.ctx, projectID, string(st)); err != nil {
				logger.Warn("indexing %s: %v", projectID, err)
				return
			}
			logger.Debug("indexing %s: %s", projectID, st)
		}
	}()
}

// StartTest records a task for one finding, marks the finding queued and
// runs the simulated test in the background.
func (a *Agent) StartTest(ctx context.Context, projectID, vulnID string) (*Task, error) {
	v, err := a.store.GetVulnerability(ctx, projectID, vulnID)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		VulnerabilityID: vulnID,
		Status:          string(vuln.StatusQueued),
	}
	if err := a.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("saving task: %w", err)
	}
	if err := a.transition(ctx, task, vuln.StatusQueued, nil, ""); err != nil {
		return nil, err
	}
	logger.Info("task %s queued for %s/%s", task.ID, projectID, vulnID)

	// the caller owns task once it is returned
	bg := *task
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(&bg, *v)
	}()
	return task, nil
}

func (a *Agent) run(task *Task, v Vulnerability) {
	if !a.sleep(a.cfg.StepDelay) {
		return
	}
	if err := a.transition(a.ctx, task, vuln.StatusPending, nil, ""); err != nil {
		logger.Warn("task %s: %v", task.ID, err)
		return
	}

	if !a.sleep(a.cfg.StepDelay) {
		return
	}
	result := SimulateResult(v)
	if err := a.transition(a.ctx, task, vuln.StatusCompleted, &result, ""); err != nil {
		logger.Warn("task %s: %v", task.ID, err)
		return
	}
	logger.Info("task %s completed (exploitable=%v)", task.ID, result.Exploitable)
}

// transition writes the task status and mirrors it onto the finding
func (a *Agent) transition(ctx context.Context, task *Task, status vuln.Status, result *vuln.TestResult, errText string) error {
	task.Status = string(status)
	task.Error = errText
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		task.Result = string(b)
	}
	if err := a.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("saving task: %w", err)
	}

	lt, err := json.Marshal(vuln.LastTest{TaskID: task.ID, Status: task.Status, Result: result, Error: errText})
	if err != nil {
		return err
	}
	return a.store.UpdateTestState(ctx, task.ProjectID, task.VulnerabilityID, string(status), string(lt))
}

// SimulateResult produces the agent verdict for a finding: high and
// critical findings are exploitable, with a source window around the
// reported line.
func SimulateResult(v Vulnerability) vuln.TestResult {
	sev := vuln.Severity(v.Severity)
	if sev != vuln.SeverityHigh && sev != vuln.SeverityCritical {
		return vuln.TestResult{Exploitable: false}
	}

	file, line := splitFileKey(v.FileKey)
	if line == 0 {
		line = 1
	}
	if file == "" {
		file = "unknown"
	}

	var ctxLines []string
	for n := max(1, line-3); n <= line+3; n++ {
		text := fmt.Sprintf("// %s", file)
		if n == line {
			text = fmt.Sprintf("handler(req.query) // %s", v.Title)
		}
		ctxLines = append(ctxLines, fmt.Sprintf("%d|%s", n, text))
	}

	title := v.Title
	if title == "" {
		title = "the reported flaw"
	}
	return vuln.TestResult{
		Exploitable: true,
		Remediation: fmt.Sprintf("Validate and encode untrusted input before it reaches %s.", file),
		LineNumber:  line,
		FileContext: strings.Join(ctxLines, "\n"),
		Suggestion:  fmt.Sprintf("A crafted request reproduced %s. Patch line %d and add a regression test.", title, line),
	}
}

// splitFileKey parses "path:start-end" into path and start line
func splitFileKey(key string) (string, int) {
	path, lines, ok := strings.Cut(key, ":")
	if !ok {
		return key, 0
	}
	start, _, _ := strings.Cut(lines, "-")
	n, err := strconv.Atoi(start)
	if err != nil {
		return key, 0
	}
	return path, n
}
