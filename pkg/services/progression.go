package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/notifier"
	"github.com/venturahq/tramite/pkg/otelhelper"
	"github.com/venturahq/tramite/pkg/persistence"
)

// Progression drives stages through their lifecycle and projects them into
// per-user task queues.
type Progression struct {
	persistence persistence.Persistence
	notifier    notifier.Service
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewProgression creates a new progression service. A nil tracer disables
// tracing.
func NewProgression(
	persistence persistence.Persistence,
	notifierService notifier.Service,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Progression {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("progression")
	}

	return &Progression{
		persistence: persistence,
		notifier:    notifierService,
		tracer:      tracer,
		logger:      logger.With("module", "progression_service"),
	}
}

// FinalizeStage finalizes the stage and advances the process: the successor
// stage enters in-progress and its assignee is notified. All writes happen
// in one transaction; the notification fan-out runs after it and never
// fails the call.
func (p *Progression) FinalizeStage(ctx context.Context, stageID int64) (*models.FinalizeResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "progression.finalize_stage",
		attribute.Int64(otelhelper.StageIDKey, stageID),
	)
	defer span.End()

	result, err := p.persistence.Stages().Finalize(ctx, stageID)
	if err != nil {
		if !persistence.IsStageNotFound(err) {
			otelhelper.SetError(span, err)
		}

		return nil, err
	}

	span.SetAttributes(
		attribute.Int64(otelhelper.ProcessIDKey, result.ProcessID),
		attribute.Bool("tramite.process.concluded", result.ProcessConcluded),
	)

	p.logger.InfoContext(ctx, "stage finalized",
		"stage_id", stageID,
		"process_id", result.ProcessID,
		"concluded", result.ProcessConcluded,
	)

	if result.Activated != nil && result.Assignee != nil {
		notifyAssignment(ctx, p.notifier, result.Assignee, notifier.Task{
			StageID:     result.Activated.ID,
			ProcessID:   result.ProcessID,
			Name:        result.Activated.Name,
			ProcessName: result.ProcessName,
		})
	}

	return result, nil
}

// ListUserTasks returns the user's open work queue.
func (p *Progression) ListUserTasks(ctx context.Context, userID int64) ([]*models.Task, error) {
	tasks, err := p.persistence.Stages().TasksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// CountPendingTasks returns how many stages the user currently works on.
func (p *Progression) CountPendingTasks(ctx context.Context, userID int64) (int, error) {
	count, err := p.persistence.Stages().CountInProgressByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// ListNotifications returns the user's notification log, newest first.
func (p *Progression) ListNotifications(ctx context.Context, userID int64) ([]*models.Notification, error) {
	notifications, err := p.persistence.Notifications().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// notifyAssignment fires the notification fan-out in the background. The
// context is detached so that the delivery outlives the request that
// triggered it.
func notifyAssignment(ctx context.Context, service notifier.Service, user *models.User, task notifier.Task) {
	if service == nil {
		return
	}

	contact := notifier.Contact{
		Name:  user.Name,
		Phone: user.Phone,
		Email: user.Email,
	}

	go service.NotifyTaskAssigned(context.WithoutCancel(ctx), contact, task)
}
