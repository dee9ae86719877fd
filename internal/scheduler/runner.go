// Package scheduler runs a task once a day at a fixed UTC time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/errs"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

type Config struct {
	At         string
	RunOnStart bool
}

type Runner struct {
	task       Task
	runOnStart bool

	slotMu sync.Mutex
	hour   int
	minute int
	wake   chan struct{}

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
}

var ErrAlreadyRunning = errors.New("scheduled run already in progress")

func New(task Task, cfg Config) (*Runner, error) {
	if task == nil {
		return nil, errors.New("scheduler task is required")
	}
	hour, minute, err := ParseTimeOfDay(cfg.At)
	if err != nil {
		return nil, err
	}
	return &Runner{
		task:       task,
		hour:       hour,
		minute:     minute,
		runOnStart: cfg.RunOnStart,
		wake:       make(chan struct{}, 1),
		now:        time.Now,
		after:      time.After,
	}, nil
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(raw string) (int, int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule time %q: want HH:MM", raw)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the first scheduled instant strictly after now, in UTC.
func (r *Runner) NextRun(now time.Time) time.Time {
	hour, minute := r.slot()
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Reschedule moves the daily run to at ("HH:MM" UTC). A Run loop that is
// waiting recomputes its next run straight away.
func (r *Runner) Reschedule(at string) error {
	hour, minute, err := ParseTimeOfDay(at)
	if err != nil {
		return err
	}

	r.slotMu.Lock()
	changed := r.hour != hour || r.minute != minute
	r.hour, r.minute = hour, minute
	r.slotMu.Unlock()

	if changed {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (r *Runner) slot() (int, int) {
	r.slotMu.Lock()
	defer r.slotMu.Unlock()
	return r.hour, r.minute
}

// Run blocks until ctx is cancelled, firing the task at each scheduled time.
// Task failures are logged and never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "scheduler"))
	hour, minute := r.slot()
	logging.Info(logCtx, "scheduler started",
		slog.String("at", fmt.Sprintf("%02d:%02d UTC", hour, minute)),
		slog.Bool("run_on_start", r.runOnStart),
	)

	if r.runOnStart {
		_ = r.RunOnce(ctx)
	}

	for {
		next := r.NextRun(r.now())
		logging.Info(logCtx, "next run scheduled", slog.Time("next_run", next))

		select {
		case <-ctx.Done():
			logging.Info(logCtx, "scheduler stopped")
			return nil
		case <-r.wake:
			hour, minute := r.slot()
			logging.Info(logCtx, "schedule changed", slog.String("at", fmt.Sprintf("%02d:%02d UTC", hour, minute)))
		case <-r.after(next.Sub(r.now())):
			_ = r.RunOnce(ctx)
		}
	}
}

// RunOnce executes the task with its own error boundary. A panic is
// recovered and returned as an error. Overlapping runs are skipped.
func (r *Runner) RunOnce(ctx context.Context) (err error) {
	if ctx == nil {
		return errors.New("context is required")
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		logging.Warn(logging.WithAttrs(ctx, slog.String("component", "scheduler")), "skipping run, previous run still in progress")
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	runCtx := logging.WithAttrs(ctx,
		slog.String("component", "scheduler"),
		slog.String("run_id", uuid.NewString()),
	)
	started := r.now()

	defer func() {
		if recovered := recover(); recovered != nil {
			err = errs.WithStack(fmt.Errorf("scheduled run panicked: %v", recovered))
			logging.Error(runCtx, "scheduled run panicked", slog.Any("err", errs.Loggable(err)))
		}

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	logging.Info(runCtx, "scheduled run started")
	if err := r.task(runCtx); err != nil {
		logging.Error(runCtx, "scheduled run failed",
			slog.Any("err", errs.Loggable(err)),
			slog.Duration("elapsed", r.now().Sub(started)),
		)
		return err
	}
	logging.Info(runCtx, "scheduled run finished", slog.Duration("elapsed", r.now().Sub(started)))
	return nil
}
