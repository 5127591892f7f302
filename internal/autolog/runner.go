package autolog

import (
	"context"
	"log"
	"time"
)

// Target applies one scheduler check, logging a dose when one is due.
type Target interface {
	AutoLogTick(ctx context.Context) (logged bool, err error)
}

// Runner polls a Target on a fixed interval.
type Runner struct {
	target   Target
	interval time.Duration
}

// NewRunner creates a Runner. A non-positive interval means TickInterval.
func NewRunner(target Target, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = TickInterval
	}
	return &Runner{target: target, interval: interval}
}

// Run checks immediately, then once per interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

func (r *Runner) check(ctx context.Context) {
	logged, err := r.target.AutoLogTick(ctx)
	if err != nil {
		// The next tick re-evaluates the same condition.
		log.Printf("Auto-log check failed: %v", err)
		return
	}
	if logged {
		log.Printf("Auto-logged %.1fL", Dose)
	}
}
