package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "feastsched/internal/log"
)

const jobTimeout = 10 * time.Minute

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Scheduler triggers the Runner's jobs on cron specs.
type Scheduler struct {
	c *cron.Cron
}

// NewScheduler registers the jobs whose spec is non-empty. Specs use the
// standard five-field format and are evaluated in loc.
func NewScheduler(r *Runner, autoWeekSpec, prefetchSpec string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if autoWeekSpec != "" {
		if _, err := c.AddFunc(autoWeekSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, err := r.AutoWeeks(ctx); err != nil {
				appLog.Error("auto week job failed", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("auto week schedule %q: %w", autoWeekSpec, err)
		}
		appLog.Info("auto week job scheduled", "spec", autoWeekSpec)
	}

	if prefetchSpec != "" {
		if _, err := c.AddFunc(prefetchSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := r.Prefetch(ctx); err != nil {
				appLog.Error("calendar prefetch job failed", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("prefetch schedule %q: %w", prefetchSpec, err)
		}
		appLog.Info("calendar prefetch job scheduled", "spec", prefetchSpec)
	}

	return &Scheduler{c: c}, nil
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int { return len(s.c.Entries()) }

func (s *Scheduler) Start() { s.c.Start() }

// Stop halts scheduling and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
