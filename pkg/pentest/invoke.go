// Package pentest drives the asynchronous "test" workflow: it invokes the
// pentest agent for each selected vulnerability one at a time, then polls
// the project in the background so completed tests show up.
package pentest

import (
	"context"
	"time"

	"github.com/vulndash/vulndash/pkg/api"
	"github.com/vulndash/vulndash/pkg/logger"
)

// Invoker starts a test for one vulnerability
type Invoker interface {
	InvokeTest(ctx context.Context, projectID, vulnID string) (*api.TestTicket, error)
}

// Outcome is the result of one invocation
type Outcome struct {
	VulnerabilityID string
	Ticket          *api.TestTicket
	Err             error
}

// InvokeAll invokes a test for every id strictly in sequence: the next
// request is sent only after the previous one answered or failed. Failures
// are logged and do not stop the sequence. A cancelled ctx marks the
// remaining ids as not sent.
func InvokeAll(ctx context.Context, inv Invoker, projectID string, ids []string) []Outcome {
	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{VulnerabilityID: id, Err: err})
			continue
		}

		ticket, err := inv.InvokeTest(ctx, projectID, id)
		if err != nil {
			logger.Error("test invocation for %s/%s failed: %v", projectID, id, err)
		} else {
			logger.Info("test invoked for %s/%s", projectID, id)
		}
		outcomes = append(outcomes, Outcome{VulnerabilityID: id, Ticket: ticket, Err: err})
	}
	return outcomes
}

// Failed counts outcomes carrying an error
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Run invokes tests for ids and then starts a background poll calling
// refresh every cfg.Interval. It returns once the invocations finished; the
// returned handle controls the poll.
func Run(ctx context.Context, inv Invoker, projectID string, ids []string, cfg PollConfig, refresh TickFunc) ([]Outcome, *Handle) {
	started := time.Now()
	outcomes := InvokeAll(ctx, inv, projectID, ids)
	logger.Debug("invoked %d tests for %s in %s (%d failed)", len(ids), projectID, time.Since(started).Truncate(time.Millisecond), Failed(outcomes))
	return outcomes, StartPoll(ctx, cfg, refresh)
}
