package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

// StageRepository handles stage-related database operations, including the
// progression transaction.
type StageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStageRepository creates a new stage repository.
func NewStageRepository(db *sql.DB, logger *slog.Logger) *StageRepository {
	return &StageRepository{db: db, logger: logger}
}

// Finalize runs the whole progression step in one transaction: finalize the
// stage, activate the successor at order+1 when it is NULL or pending,
// record the assignee notification and re-evaluate process conclusion.
// Re-finalizing an already finalized stage succeeds and does not advance a
// second time: the successor already left pending on the first run.
func (r *StageRepository) Finalize(ctx context.Context, id int64) (*models.FinalizeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var result *models.FinalizeResult

	result, err = r.finalizeInTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func (r *StageRepository) finalizeInTx(ctx context.Context, tx *sql.Tx, id int64) (*models.FinalizeResult, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE stages
		SET status = $1
		WHERE id = $2
		RETURNING `+stageColumns,
		models.StageStatusFinalized, id,
	)

	finalized, err := scanStage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrStageNotFound
		}

		return nil, fmt.Errorf("failed to finalize stage: %w", err)
	}

	result := &models.FinalizeResult{
		Finalized: finalized,
		ProcessID: finalized.ProcessID,
	}

	err = tx.QueryRowContext(ctx,
		`SELECT name FROM processes WHERE id = $1`, finalized.ProcessID,
	).Scan(&result.ProcessName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve process name: %w", err)
	}

	row = tx.QueryRowContext(ctx, `
		UPDATE stages
		SET status = $1
		WHERE process_id = $2
		  AND stage_order = $3
		  AND (status IS NULL OR status = $4)
		RETURNING `+stageColumns,
		models.StageStatusInProgress, finalized.ProcessID, finalized.Order+1, models.StageStatusPending,
	)

	activated, err := scanStage(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to activate next stage: %w", err)
	}

	if activated != nil {
		result.Activated = activated

		if activated.UserID != nil {
			message := fmt.Sprintf("You have a new task: %s in process %s", activated.Name, result.ProcessName)

			err = insertNotification(ctx, tx, *activated.UserID, activated.ID, message)
			if err != nil {
				return nil, err
			}

			result.Assignee, err = userByID(ctx, tx, *activated.UserID)
			if err != nil {
				return nil, err
			}
		}
	}

	result.ProcessConcluded, err = concludeIfComplete(ctx, tx, finalized.ProcessID)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListByProcess returns the process's stages in order. Returns
// ErrProcessNotFound when the process itself does not exist.
func (r *StageRepository) ListByProcess(ctx context.Context, processID int64) ([]*models.Stage, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM processes WHERE id = $1)`, processID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check process: %w", err)
	}

	if !exists {
		return nil, persistence.ErrProcessNotFound
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE process_id = $1 ORDER BY stage_order`,
		processID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	stages := make([]*models.Stage, 0)

	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}

		stages = append(stages, stage)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating stages: %w", err)
	}

	return stages, nil
}

// TasksByUser returns the user's actionable work queue: stages assigned to
// the user that are in progress or predate status tracking. Pending stages
// stay out until the advancement rule activates them.
func (r *StageRepository) TasksByUser(ctx context.Context, userID int64) ([]*models.Task, error) {
	query := `
		SELECT
			s.id
		  , s.name
		  , COALESCE(s.status, $1)
		  , s.stage_order
		  , s.due_date
		  , s.urgent
		  , p.id
		  , p.name
		FROM stages s
		JOIN processes p ON p.id = s.process_id
		WHERE s.user_id = $2
		  AND (s.status IS NULL OR s.status = $3)
		ORDER BY
			s.status NULLS LAST,
			s.stage_order ASC,
			s.due_date NULLS LAST
	`

	rows, err := r.db.QueryContext(ctx, query,
		models.StageStatusPending, userID, models.StageStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	tasks := make([]*models.Task, 0)

	for rows.Next() {
		var task models.Task

		err := rows.Scan(
			&task.StageID,
			&task.Name,
			&task.Status,
			&task.Order,
			&task.DueDate,
			&task.Urgent,
			&task.ProcessID,
			&task.ProcessName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, &task)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// CountInProgressByUser counts the user's in-progress stages.
func (r *StageRepository) CountInProgressByUser(ctx context.Context, userID int64) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM stages
		WHERE user_id = $1 AND status = $2
	`, userID, models.StageStatusInProgress).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count in-progress stages: %w", err)
	}

	return count, nil
}

// Overdue returns assigned in-progress stages whose due date passed.
func (r *StageRepository) Overdue(ctx context.Context, asOf time.Time) ([]*models.OverdueTask, error) {
	query := `
		SELECT
			s.id
		  , s.name
		  , s.status
		  , s.stage_order
		  , s.due_date
		  , s.urgent
		  , p.id
		  , p.name
		  , u.id
		  , u.name
		  , u.email
		  , u.phone
		  , u.password_hash
		  , u.role
		  , u.created_at
		FROM stages s
		JOIN processes p ON p.id = s.process_id
		JOIN users u ON u.id = s.user_id
		WHERE s.status = $1
		  AND s.due_date IS NOT NULL
		  AND s.due_date < $2
		ORDER BY s.due_date
	`

	rows, err := r.db.QueryContext(ctx, query, models.StageStatusInProgress, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue stages: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	overdue := make([]*models.OverdueTask, 0)

	for rows.Next() {
		var (
			task models.Task
			user models.User
		)

		err := rows.Scan(
			&task.StageID,
			&task.Name,
			&task.Status,
			&task.Order,
			&task.DueDate,
			&task.Urgent,
			&task.ProcessID,
			&task.ProcessName,
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Phone,
			&user.PasswordHash,
			&user.Role,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overdue stage: %w", err)
		}

		overdue = append(overdue, &models.OverdueTask{Task: task, Assignee: &user})
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating overdue stages: %w", err)
	}

	return overdue, nil
}
