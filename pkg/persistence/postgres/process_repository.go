package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

// ProcessRepository handles process-related database operations.
type ProcessRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewProcessRepository creates a new process repository.
func NewProcessRepository(db *sql.DB, logger *slog.Logger) *ProcessRepository {
	return &ProcessRepository{db: db, logger: logger}
}

// List returns all processes with client name, the stage currently in
// progress and the full stage set.
func (r *ProcessRepository) List(ctx context.Context) ([]*models.ProcessSummary, error) {
	query := `
		SELECT
			p.id
		  , p.name
		  , p.status
		  , c.name
		  , COALESCE(
				(
					SELECT s.name
					FROM stages s
					WHERE s.process_id = p.id
					  AND s.status = $1
					ORDER BY s.stage_order
					LIMIT 1
				),
				'Concluded'
			)
		FROM processes p
		JOIN clients c ON c.id = p.client_id
		ORDER BY p.id
	`

	rows, err := r.db.QueryContext(ctx, query, models.StageStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to query processes: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	summaries := make([]*models.ProcessSummary, 0)

	for rows.Next() {
		var summary models.ProcessSummary

		err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.Status,
			&summary.ClientName,
			&summary.CurrentStage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process summary: %w", err)
		}

		summaries = append(summaries, &summary)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating processes: %w", err)
	}

	for _, summary := range summaries {
		stages, err := r.loadStages(ctx, summary.ID)
		if err != nil {
			return nil, err
		}

		summary.Stages = stages
	}

	return summaries, nil
}

// GetByID returns a process with its client and ordered stages. Returns
// nil, nil when the process does not exist.
func (r *ProcessRepository) GetByID(ctx context.Context, id int64) (*models.ProcessDetail, error) {
	query := `
		SELECT
			p.id
		  , p.name
		  , p.type_id
		  , p.client_id
		  , p.status
		  , p.created_at
		  , c.id
		  , c.name
		  , c.phone
		  , c.created_at
		FROM processes p
		JOIN clients c ON c.id = p.client_id
		WHERE p.id = $1
	`

	var (
		detail models.ProcessDetail
		client models.Client
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&detail.Name,
		&detail.TypeID,
		&detail.ClientID,
		&detail.Status,
		&detail.CreatedAt,
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan process: %w", err)
	}

	detail.Client = &client

	stages, err := r.loadStages(ctx, id)
	if err != nil {
		return nil, err
	}

	detail.Stages = stages

	return &detail, nil
}

func (r *ProcessRepository) loadStages(ctx context.Context, processID int64) ([]*models.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM stages WHERE process_id = $1 ORDER BY stage_order`

	rows, err := r.db.QueryContext(ctx, query, processID)
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

// Upsert creates or updates a client, a process and its stage list inside
// one transaction. See persistence.ProcessRepository for the dedup policy.
func (r *ProcessRepository) Upsert(ctx context.Context, input models.ProcessUpsert) (*models.UpsertResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var result *models.UpsertResult

	result, err = r.upsertInTx(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func (r *ProcessRepository) upsertInTx(ctx context.Context, tx *sql.Tx, input models.ProcessUpsert) (*models.UpsertResult, error) {
	var (
		clientID  int64
		processID int64
	)

	if input.ProcessID != nil {
		// Update path: the process must exist; patch its client and base row.
		processID = *input.ProcessID

		err := tx.QueryRowContext(ctx,
			`SELECT client_id FROM processes WHERE id = $1`, processID,
		).Scan(&clientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, persistence.ErrProcessNotFound
			}

			return nil, fmt.Errorf("failed to resolve process: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE clients SET name = $1, phone = $2 WHERE id = $3`,
			input.Client.Name, input.Client.Phone, clientID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update client: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE processes SET name = $1, type_id = $2 WHERE id = $3`,
			input.Process.Name, input.Process.TypeID, processID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update process: %w", err)
		}
	} else {
		// Create path: reuse the client on (name, phone) and the process on
		// (client, type), creating either when absent.
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM clients WHERE name = $1 AND phone = $2`,
			input.Client.Name, input.Client.Phone,
		).Scan(&clientID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("failed to resolve client: %w", err)
			}

			err = tx.QueryRowContext(ctx,
				`INSERT INTO clients (name, phone) VALUES ($1, $2) RETURNING id`,
				input.Client.Name, input.Client.Phone,
			).Scan(&clientID)
			if err != nil {
				return nil, fmt.Errorf("failed to insert client: %w", err)
			}
		}

		err = tx.QueryRowContext(ctx,
			`SELECT id FROM processes WHERE client_id = $1 AND type_id = $2`,
			clientID, input.Process.TypeID,
		).Scan(&processID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("failed to resolve process: %w", err)
			}

			err = tx.QueryRowContext(ctx,
				`INSERT INTO processes (name, type_id, client_id) VALUES ($1, $2, $3) RETURNING id`,
				input.Process.Name, input.Process.TypeID, clientID,
			).Scan(&processID)
			if err != nil {
				return nil, fmt.Errorf("failed to insert process: %w", err)
			}
		}
	}

	activated, err := r.upsertStages(ctx, tx, processID, input.Process.Name, input.Stages)
	if err != nil {
		return nil, err
	}

	return &models.UpsertResult{
		ClientID:  clientID,
		ProcessID: processID,
		Activated: activated,
	}, nil
}

// upsertStages applies the positional status rule over the supplied stage
// list: the first stage becomes in-progress, the rest pending, and an
// existing finalized status is sticky. Stages entering in-progress with an
// assignee produce a notification row and are reported back for fan-out.
func (r *ProcessRepository) upsertStages(
	ctx context.Context,
	tx *sql.Tx,
	processID int64,
	processName string,
	inputs []models.StageInput,
) ([]*models.ActivatedStage, error) {
	activated := make([]*models.ActivatedStage, 0)

	for i, input := range inputs {
		order := i + 1

		positional := models.StageStatusPending
		if order == 1 {
			positional = models.StageStatusInProgress
		}

		existing, err := r.stageByName(ctx, tx, processID, input.Name)
		if err != nil {
			return nil, err
		}

		var (
			stage         *models.Stage
			previousState models.StageStatus
		)

		if existing != nil {
			previousState = existing.Status

			newStatus := positional
			if existing.Status == models.StageStatusFinalized {
				newStatus = models.StageStatusFinalized
			}

			stage = patchStage(existing, input)
			stage.Status = newStatus
			stage.Order = order

			_, err = tx.ExecContext(ctx, `
				UPDATE stages
				SET user_id = $1, due_date = $2, urgent = $3, notes = $4, status = $5, stage_order = $6
				WHERE id = $7
			`, stage.UserID, stage.DueDate, stage.Urgent, stage.Notes, stage.Status, stage.Order, stage.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to update stage: %w", err)
			}
		} else {
			stage = &models.Stage{
				ProcessID: processID,
				Name:      input.Name,
				Order:     order,
				Status:    positional,
				UserID:    input.UserID,
				Urgent:    input.Urgent != nil && *input.Urgent,
			}

			stage.DueDate = input.DueDate
			if input.Notes != nil {
				stage.Notes = *input.Notes
			}

			err = tx.QueryRowContext(ctx, `
				INSERT INTO stages (process_id, name, stage_order, status, user_id, due_date, urgent, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id
			`, stage.ProcessID, stage.Name, stage.Order, stage.Status,
				stage.UserID, stage.DueDate, stage.Urgent, stage.Notes,
			).Scan(&stage.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to insert stage: %w", err)
			}
		}

		entered := stage.Status == models.StageStatusInProgress &&
			previousState != models.StageStatusInProgress

		if entered && stage.UserID != nil {
			message := fmt.Sprintf("You have a new task: %s in process %s", stage.Name, processName)

			err = insertNotification(ctx, tx, *stage.UserID, stage.ID, message)
			if err != nil {
				return nil, err
			}

			assignee, err := userByID(ctx, tx, *stage.UserID)
			if err != nil {
				return nil, err
			}

			activated = append(activated, &models.ActivatedStage{Stage: stage, Assignee: assignee})
		}
	}

	err := r.renumberLeftoverStages(ctx, tx, processID, inputs)
	if err != nil {
		return nil, err
	}

	return activated, nil
}

// renumberLeftoverStages pushes stages that are no longer part of the
// supplied list behind it, keeping their relative order. Together with the
// deferred order constraint this lets a later upsert reorder or replace
// stages without colliding with rows the list no longer names.
func (r *ProcessRepository) renumberLeftoverStages(
	ctx context.Context,
	tx *sql.Tx,
	processID int64,
	inputs []models.StageInput,
) error {
	names := make([]string, 0, len(inputs))
	for _, input := range inputs {
		names = append(names, input.Name)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM stages
		WHERE process_id = $1 AND NOT (name = ANY($2))
		ORDER BY stage_order
	`, processID, pq.Array(names))
	if err != nil {
		return fmt.Errorf("failed to query leftover stages: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	ids := make([]int64, 0)

	for rows.Next() {
		var id int64

		err := rows.Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to scan stage id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("error iterating leftover stages: %w", err)
	}

	for i, id := range ids {
		_, err := tx.ExecContext(ctx,
			"UPDATE stages SET stage_order = $1 WHERE id = $2",
			len(inputs)+i+1, id,
		)
		if err != nil {
			return fmt.Errorf("failed to renumber stage: %w", err)
		}
	}

	return nil
}

func (r *ProcessRepository) stageByName(ctx context.Context, tx *sql.Tx, processID int64, name string) (*models.Stage, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE process_id = $1 AND name = $2`,
		processID, name,
	)

	stage, err := scanStage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan stage: %w", err)
	}

	return stage, nil
}

// patchStage overlays the non-nil input fields on the existing stage.
func patchStage(existing *models.Stage, input models.StageInput) *models.Stage {
	stage := *existing

	if input.UserID != nil {
		stage.UserID = input.UserID
	}

	if input.DueDate != nil {
		stage.DueDate = input.DueDate
	}

	if input.Urgent != nil {
		stage.Urgent = *input.Urgent
	}

	if input.Notes != nil {
		stage.Notes = *input.Notes
	}

	return &stage
}

// Delete removes the process with its stages and drops the client row when
// no other process references it.
func (r *ProcessRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var clientID int64

	err = tx.QueryRowContext(ctx, `SELECT client_id FROM processes WHERE id = $1`, id).Scan(&clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrProcessNotFound

			return false, err
		}

		return false, fmt.Errorf("failed to resolve process: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM stages WHERE process_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete stages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM processes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete process: %w", err)
	}

	var remaining int

	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM processes WHERE client_id = $1`, clientID).Scan(&remaining)
	if err != nil {
		return false, fmt.Errorf("failed to count client processes: %w", err)
	}

	clientDeleted := false

	if remaining == 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, clientID)
		if err != nil {
			return false, fmt.Errorf("failed to delete client: %w", err)
		}

		clientDeleted = true
	}

	err = tx.Commit()
	if err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return clientDeleted, nil
}

// ConcludeIfComplete marks the process concluded when every stage is
// finalized. Used by the lazy recheck on listing.
func (r *ProcessRepository) ConcludeIfComplete(ctx context.Context, id int64) (bool, error) {
	return concludeIfComplete(ctx, r.db, id)
}
