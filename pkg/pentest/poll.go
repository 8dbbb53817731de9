package pentest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vulndash/vulndash/pkg/logger"
)

// Defaults for the post-invocation poll
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollAttempts = 30
)

// PollConfig bounds a poll loop
type PollConfig struct {
	Interval time.Duration
	Attempts int
}

// DefaultPollConfig polls every 2s for about a minute
func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: DefaultPollInterval, Attempts: DefaultPollAttempts}
}

// TickFunc is called once per poll attempt, starting at 1
type TickFunc func(ctx context.Context, attempt int) error

// Handle controls a running poll
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	ticks  int32
	once   sync.Once
}

// StartPoll runs tick every cfg.Interval, at most cfg.Attempts times, in a
// background goroutine. The loop checks ctx and the handle before every
// attempt and exits as soon as either is done. Tick errors are logged and
// do not end the loop.
func StartPoll(ctx context.Context, cfg PollConfig, tick TickFunc) *Handle {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultPollAttempts
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()

		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for attempt := 1; attempt <= cfg.Attempts; attempt++ {
			select {
			case <-ctx.Done():
				logger.Debug("poll stopped after %d attempts", attempt-1)
				return
			case <-ticker.C:
			}
			if ctx.Err() != nil {
				return
			}

			atomic.AddInt32(&h.ticks, 1)
			if err := tick(ctx, attempt); err != nil {
				logger.Warn("poll attempt %d/%d failed: %v", attempt, cfg.Attempts, err)
			}
		}
		logger.Debug("poll finished after %d attempts", cfg.Attempts)
	}()

	return h
}

// Stop ends the poll. It is safe to call more than once and on a nil handle.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

// Done is closed when the poll loop has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Ticks returns how many attempts have fired so far
func (h *Handle) Ticks() int {
	return int(atomic.LoadInt32(&h.ticks))
}
