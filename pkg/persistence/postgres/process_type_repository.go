package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/venturahq/tramite/pkg/models"
)

// ProcessTypeRepository reads the process-type catalogue.
type ProcessTypeRepository struct {
	db *sql.DB
}

// NewProcessTypeRepository creates a new process-type repository.
func NewProcessTypeRepository(db *sql.DB) *ProcessTypeRepository {
	return &ProcessTypeRepository{db: db}
}

// List returns every process type.
func (r *ProcessTypeRepository) List(ctx context.Context) ([]*models.ProcessType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM process_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query process types: %w", err)
	}

	defer func() { _ = rows.Close() }()

	types := make([]*models.ProcessType, 0)

	for rows.Next() {
		var processType models.ProcessType

		err := rows.Scan(&processType.ID, &processType.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process type: %w", err)
		}

		types = append(types, &processType)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating process types: %w", err)
	}

	return types, nil
}
