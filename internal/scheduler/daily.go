package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a unit of recurring background work. Jobs receive a context that is
// cancelled when the scheduler stops; they are expected to log and swallow
// their own per-item failures.
type Job func(ctx context.Context)

// Daily invokes a Job once per day at a fixed hour in a fixed location.
// Firings that arrive while the previous run is still in progress are
// skipped, so at most one run executes at a time.
type Daily struct {
	hour     int
	loc      *time.Location
	job      Job
	logger   *slog.Logger
	timeFunc func() time.Time // Injectable for testing

	running    atomic.Bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewDaily creates a Daily scheduler that fires at the given hour (0-23) in
// the given location.
func NewDaily(hour int, loc *time.Location, job Job, logger *slog.Logger) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Daily{
		hour:     hour,
		loc:      loc,
		job:      job,
		logger:   logger.With(slog.String("component", "daily_scheduler")),
		timeFunc: time.Now,
	}
}

// Start launches the scheduling loop in its own goroutine.
func (d *Daily) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancelFunc = cancel

	d.wg.Add(1)
	go d.loop(ctx)

	d.logger.Info("daily scheduler started",
		slog.Int("hour", d.hour),
		slog.String("timezone", d.loc.String()))
}

// Stop cancels the scheduling loop and waits for any in-progress run to
// finish.
func (d *Daily) Stop() {
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
	d.wg.Wait()
	d.logger.Info("daily scheduler stopped")
}

// loop sleeps until the next firing time, triggers the job, and repeats
// until the context is cancelled.
func (d *Daily) loop(ctx context.Context) {
	defer d.wg.Done()

	for {
		next := d.NextRun(d.timeFunc())
		timer := time.NewTimer(next.Sub(d.timeFunc()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			d.fire(ctx)
		}
	}
}

// fire runs the job in its own goroutine unless the previous run is still in
// progress, in which case the firing is skipped and logged.
func (d *Daily) fire(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		d.logger.Warn("skipping scheduled run, previous run still in progress")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.running.Store(false)
		defer func() {
			if p := recover(); p != nil {
				// A panicking run must not take the scheduler down with it.
				d.logger.Error("scheduled run panicked", slog.Any("panic", p))
			}
		}()

		d.job(ctx)
	}()
}

// NextRun returns the next firing time strictly after now: today at the
// configured hour if that is still ahead, otherwise the same hour tomorrow.
func (d *Daily) NextRun(now time.Time) time.Time {
	now = now.In(d.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, 0, 0, 0, d.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
