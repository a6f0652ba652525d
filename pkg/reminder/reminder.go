// Package reminder schedules the daily sweep over overdue tasks and nudges
// their assignees through the notification channels.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/venturahq/tramite/pkg/notifier"
	"github.com/venturahq/tramite/pkg/persistence"
)

// schedule fires every morning at 08:00.
const schedule = "0 8 * * *"

// Reminder runs the overdue-task sweep on a cron schedule.
type Reminder struct {
	persistence persistence.Persistence
	notifier    notifier.Service
	logger      *slog.Logger
	cron        *cron.Cron
}

// New creates a reminder scheduler.
func New(persistence persistence.Persistence, notifierService notifier.Service, logger *slog.Logger) *Reminder {
	return &Reminder{
		persistence: persistence,
		notifier:    notifierService,
		logger:      logger.With("module", "reminder"),
		cron:        cron.New(),
	}
}

// Start registers the daily job and starts the scheduler.
func (r *Reminder) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(schedule, func() {
		r.Run(ctx, time.Now())
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "reminder scheduler started", "schedule", schedule)

	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (r *Reminder) Stop() {
	<-r.cron.Stop().Done()
}

// Run executes one sweep: every in-progress stage past its due date gets a
// reminder to its assignee. Failures are logged per task and do not stop
// the sweep.
func (r *Reminder) Run(ctx context.Context, asOf time.Time) {
	overdue, err := r.persistence.Stages().Overdue(ctx, asOf)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to load overdue tasks", "error", err)

		return
	}

	r.logger.InfoContext(ctx, "overdue sweep", "count", len(overdue))

	for _, task := range overdue {
		contact := notifier.Contact{
			Name:  task.Assignee.Name,
			Phone: task.Assignee.Phone,
			Email: task.Assignee.Email,
		}

		r.notifier.NotifyTaskAssigned(ctx, contact, notifier.Task{
			StageID:     task.Task.StageID,
			ProcessID:   task.Task.ProcessID,
			Name:        task.Task.Name,
			ProcessName: task.Task.ProcessName,
		})
	}
}
