package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/export"
	"github.com/vulndash/vulndash/pkg/pentest"
	"github.com/vulndash/vulndash/pkg/state"
	"github.com/vulndash/vulndash/pkg/vuln"
)

var (
	testAll        bool
	testSeverities []string
	testNoWait     bool
)

var testCmd = &cobra.Command{
	Use:   "test <project-id> [vuln-id...]",
	Short: "Ask the pentest agent to test findings",
	Long: `Invoke the pentest agent for each finding, one request at a time, then
poll the project until every test has left the queued and pending states or
the poll gives up. Findings can be named by id or picked with --all and
--severity.`,
	Example: `  vulndash test 6650c1 v1 v2
  vulndash test 6650c1 --all --severity critical,high`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := args[0]
		ids := args[1:]
		if len(ids) > 0 && (testAll || len(testSeverities) > 0) {
			return errors.New("pass vulnerability ids or --all/--severity, not both")
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if len(ids) == 0 {
			if !testAll && len(testSeverities) == 0 {
				return errors.New("no vulnerabilities given; pass ids or --all")
			}
			project, err := client.GetProject(ctx, projectID)
			if err != nil {
				return err
			}
			filter := state.Filter{}.WithSeverities(testSeverities)
			ids = state.IDs(state.Apply(filter, project.Sorted()))
			if len(ids) == 0 {
				fmt.Println("Nothing to test.")
				return nil
			}
		}

		fmt.Printf("🧪 Invoking %d test(s) on %s...\n", len(ids), projectID)

		var (
			mu     sync.Mutex
			latest *vuln.Project
		)
		pollCtx, finish := context.WithCancel(ctx)
		defer finish()

		pollCfg := pollConfig()
		progress := newTestProgress(ids)
		refresh := func(ctx context.Context, attempt int) error {
			client.InvalidateProject(projectID)
			p, err := client.GetProject(ctx, projectID)
			if err != nil {
				return err
			}
			mu.Lock()
			latest = p
			mu.Unlock()

			running, done := progress.observe(p)
			fmt.Printf("   poll %d/%d: %d of %d still running\n", attempt, pollCfg.Attempts, len(running), len(ids))
			if done {
				finish()
			}
			return nil
		}

		outcomes, handle := pentest.Run(pollCtx, client, projectID, ids, pollCfg, refresh)
		printOutcomes(outcomes)
		if failed := pentest.Failed(outcomes); failed == len(ids) {
			handle.Stop()
			<-handle.Done()
			return fmt.Errorf("all %d invocations failed", failed)
		}

		if testNoWait {
			handle.Stop()
			<-handle.Done()
			return nil
		}

		<-handle.Done()
		if ctx.Err() != nil {
			return errors.New("interrupted")
		}

		mu.Lock()
		p := latest
		mu.Unlock()
		if p == nil {
			return nil
		}
		if running := runningIDs(p, ids); len(running) > 0 {
			fmt.Println(color.YellowString("⚠️  %d test(s) still running after %d polls", len(running), handle.Ticks()))
		} else {
			fmt.Println(color.GreenString("✅ All tests finished"))
		}
		return export.WriteTable(os.Stdout, testedItems(p, ids), export.TableOptions{ShowIDs: true})
	},
}

func printOutcomes(outcomes []pentest.Outcome) {
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			fmt.Printf("   %s %s: %v\n", color.RedString("✗"), o.VulnerabilityID, o.Err)
		case o.Ticket != nil && o.Ticket.TaskID != "":
			fmt.Printf("   %s %s (task %s)\n", color.GreenString("✓"), o.VulnerabilityID, o.Ticket.TaskID)
		default:
			fmt.Printf("   %s %s\n", color.GreenString("✓"), o.VulnerabilityID)
		}
	}
}

// runningIDs returns the ids whose status is still in progress. Ids missing
// from the project are not counted.
func runningIDs(p *vuln.Project, ids []string) []string {
	var out []string
	for _, id := range ids {
		if v, ok := p.Vulnerabilities[id]; ok && v.Status.InProgress() {
			out = append(out, id)
		}
	}
	return out
}

// testProgress follows the tested ids across polls. A test the agent has not
// picked up yet still shows its old status, so the run only counts as done
// after some id was seen in progress.
type testProgress struct {
	ids  []string
	seen map[string]bool
}

func newTestProgress(ids []string) *testProgress {
	return &testProgress{ids: ids, seen: make(map[string]bool)}
}

// observe records the ids running in p and reports whether every id seen
// running has since finished
func (t *testProgress) observe(p *vuln.Project) (running []string, done bool) {
	running = runningIDs(p, t.ids)
	for _, id := range running {
		t.seen[id] = true
	}
	return running, len(running) == 0 && len(t.seen) > 0
}

// testedItems returns the tested findings in severity order
func testedItems(p *vuln.Project, ids []string) []vuln.Vulnerability {
	want := state.NewSelection(ids...)
	var out []vuln.Vulnerability
	for _, v := range p.Sorted() {
		if want.IsSelected(v.ID) {
			out = append(out, v)
		}
	}
	return out
}

func init() {
	testCmd.Flags().BoolVar(&testAll, "all", false, "Test every finding of the project")
	testCmd.Flags().StringSliceVarP(&testSeverities, "severity", "s", nil, "Test findings of these severities")
	testCmd.Flags().BoolVar(&testNoWait, "no-wait", false, "Return after invoking, without polling")
	rootCmd.AddCommand(testCmd)
}
