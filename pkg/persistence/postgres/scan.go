package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/venturahq/tramite/pkg/models"
)

type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx so that the helpers below
// can run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const stageColumns = `id, process_id, name, stage_order, status, user_id, due_date, urgent, notes`

// scanStage scans one stage row. A NULL status is reported as pending; the
// advancement queries still match NULL explicitly at the SQL level.
func scanStage(s scanner) (*models.Stage, error) {
	var (
		stage  models.Stage
		status sql.NullString
	)

	err := s.Scan(
		&stage.ID,
		&stage.ProcessID,
		&stage.Name,
		&stage.Order,
		&status,
		&stage.UserID,
		&stage.DueDate,
		&stage.Urgent,
		&stage.Notes,
	)
	if err != nil {
		return nil, err
	}

	if status.Valid {
		stage.Status = models.StageStatus(status.String)
	} else {
		stage.Status = models.StageStatusPending
	}

	return &stage, nil
}

const userColumns = `id, name, email, phone, password_hash, role, created_at`

func scanUser(s scanner) (*models.User, error) {
	var user models.User

	err := s.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// userByID loads a user's contact row, inside or outside a transaction.
// Returns nil, nil when the user does not exist.
func userByID(ctx context.Context, q querier, id int64) (*models.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

// insertNotification appends the task-assignment record. The unique
// constraint on (user_id, stage_id, message) makes re-runs no-ops.
func insertNotification(ctx context.Context, q querier, userID, stageID int64, message string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO notifications (user_id, stage_id, message)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, userID, stageID, message)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// concludeIfComplete marks the process concluded when it has stages and none
// of them is short of finalized. Reports whether the row changed.
func concludeIfComplete(ctx context.Context, q querier, processID int64) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE processes
		SET status = $1
		WHERE id = $2
		  AND status <> $1
		  AND EXISTS (SELECT 1 FROM stages WHERE process_id = $2)
		  AND NOT EXISTS (
			SELECT 1 FROM stages
			WHERE process_id = $2
			  AND (status IS NULL OR status <> $3)
		  )
	`, models.ProcessStatusConcluded, processID, models.StageStatusFinalized)
	if err != nil {
		return false, fmt.Errorf("failed to conclude process: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
