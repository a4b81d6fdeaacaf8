package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"kliharness/pkg/logging"
)

// DefaultTick is the tick quantum used by the readiness probes.
const DefaultTick = 31250 * time.Microsecond

// Result summarizes one Run.
type Result struct {
	// Iterations is the number of ticks that were executed.
	Iterations int
	// Completed is true when every task terminated.
	Completed bool
	// Remaining is the number of tasks still pending when Run returned.
	Remaining int
	// Tyme is the logical time reached.
	Tyme time.Duration
}

// Scheduler drives a set of top-level tasks in a tick loop.
type Scheduler struct {
	// Tick is the logical time added per iteration.
	Tick time.Duration
	// Limit caps the number of iterations. Zero runs until every task completes.
	Limit int
	// Real makes the loop sleep for one Tick between iterations.
	Real bool

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a scheduler.
func New(tick time.Duration, limit int, real bool) *Scheduler {
	return &Scheduler{
		Tick:  tick,
		Limit: limit,
		Real:  real,
		sleep: sleepContext,
	}
}

// LimitFor converts a timeout into an iteration limit for the given tick.
func LimitFor(timeout, tick time.Duration) int {
	if tick <= 0 || timeout <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(timeout) / float64(tick)))
	if n < 1 {
		return 1
	}
	return n
}

// Run resumes every active task once per tick, in registration order, dropping tasks
// as they complete. It returns when no task is left, when the iteration limit is
// reached, when a task fails, or when ctx is cancelled between ticks.
//
// Tasks left pending are abandoned: Run does not call Exit on them.
func (s *Scheduler) Run(ctx context.Context, tasks ...Task) (Result, error) {
	active := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			active = append(active, t)
		}
	}

	var res Result
	for len(active) > 0 && !s.limitReached(res.Iterations) {
		if err := ctx.Err(); err != nil {
			res.Remaining = len(active)
			return res, err
		}

		next := active[:0]
		for _, t := range active {
			status, err := t.Resume(res.Tyme)
			if err != nil {
				res.Remaining = len(active)
				return res, fmt.Errorf("task failed at iteration %d: %w", res.Iterations+1, err)
			}
			if !status.Done {
				next = append(next, t)
			}
		}
		active = next
		res.Iterations++
		res.Tyme += s.Tick

		if s.Real && len(active) > 0 && !s.limitReached(res.Iterations) {
			if err := s.sleepFn()(ctx, s.Tick); err != nil {
				res.Remaining = len(active)
				return res, err
			}
		}
	}

	res.Remaining = len(active)
	res.Completed = len(active) == 0
	s.log().Debug("run finished",
		"iterations", res.Iterations,
		"completed", res.Completed,
		"remaining", res.Remaining)
	return res, nil
}

func (s *Scheduler) limitReached(iterations int) bool {
	return s.Limit > 0 && iterations >= s.Limit
}

func (s *Scheduler) sleepFn() func(context.Context, time.Duration) error {
	if s.sleep == nil {
		return sleepContext
	}
	return s.sleep
}

func (s *Scheduler) log() *slog.Logger {
	return logging.With("Scheduler", "tick", s.Tick)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
