package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/tasknest/tasknest-api/internal/platform/mail"
	"github.com/tasknest/tasknest-api/internal/store"
)

// DueTaskNotifier scans for tasks due tomorrow and dispatches one reminder
// mail per task owner. Its Run method is the Job a Daily scheduler invokes
// once per day; it uses its own store handles, decoupled from request
// handling.
type DueTaskNotifier struct {
	tasks    store.TaskStore
	users    store.UserStore
	mailer   mail.Mailer
	loc      *time.Location
	logger   *slog.Logger
	timeFunc func() time.Time // Injectable for testing
}

// NewDueTaskNotifier creates a DueTaskNotifier. The location fixes the
// reference time zone used to compute the "tomorrow" window.
func NewDueTaskNotifier(
	tasks store.TaskStore,
	users store.UserStore,
	mailer mail.Mailer,
	loc *time.Location,
	logger *slog.Logger,
) *DueTaskNotifier {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DueTaskNotifier{
		tasks:    tasks,
		users:    users,
		mailer:   mailer,
		loc:      loc,
		logger:   logger.With(slog.String("component", "due_task_notifier")),
		timeFunc: time.Now,
	}
}

// Run executes one best-effort scan-and-notify pass. The window is
// [tomorrow 00:00:00, day after tomorrow 00:00:00) in the reference zone.
// Completion state is not filtered. A failure to dispatch one reminder
// never aborts the scan of the remaining tasks; a failure to scan at all
// aborts only this run, never the schedule.
func (n *DueTaskNotifier) Run(ctx context.Context) {
	start, end := n.Window(n.timeFunc())

	log := n.logger.With(
		slog.Time("window_start", start),
		slog.Time("window_end", end))

	tasks, err := n.tasks.FindDueBetween(ctx, start, end)
	if err != nil {
		log.Error("failed to scan for due tasks", slog.String("error", err.Error()))
		return
	}

	log.Info("due-task scan complete", slog.Int("task_count", len(tasks)))

	sent := 0
	for _, task := range tasks {
		owner, err := n.users.GetByID(ctx, task.UserID)
		if err != nil {
			log.Warn("skipping reminder, owner lookup failed",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}

		if owner.Email == "" {
			log.Warn("skipping reminder, owner has no email address",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", owner.ID.String()))
			continue
		}

		msg := mail.Message{
			To:       owner.Email,
			Subject:  "Task due tomorrow: " + task.Title,
			Template: mail.TemplateDueTaskReminder,
			Data: map[string]string{
				"task_id":    task.ID.String(),
				"task_title": task.Title,
				"due_date":   task.DueDate.In(n.loc).Format(time.RFC1123),
			},
		}

		if err := n.mailer.Send(ctx, msg); err != nil {
			log.Warn("failed to dispatch reminder",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		sent++
	}

	log.Info("due-task reminders dispatched",
		slog.Int("sent", sent),
		slog.Int("skipped", len(tasks)-sent))
}

// Window computes the reminder window for a run at the given instant:
// the full calendar day of tomorrow in the reference zone, half-open.
func (n *DueTaskNotifier) Window(now time.Time) (time.Time, time.Time) {
	now = now.In(n.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, n.loc).AddDate(0, 0, 1)
	return start, start.AddDate(0, 0, 1)
}
