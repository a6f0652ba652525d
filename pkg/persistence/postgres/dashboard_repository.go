package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/venturahq/tramite/pkg/models"
)

// DashboardRepository computes the dashboard aggregates straight in SQL.
type DashboardRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDashboardRepository creates a new dashboard repository.
func NewDashboardRepository(db *sql.DB, logger *slog.Logger) *DashboardRepository {
	return &DashboardRepository{db: db, logger: logger}
}

// Summary returns headline counters, the monthly creation series, the
// status breakdown and the five most recent processes.
func (r *DashboardRepository) Summary(ctx context.Context) (*models.DashboardData, error) {
	data := &models.DashboardData{}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status <> $1)
		  , COUNT(*) FILTER (WHERE status = $1)
		FROM processes
	`, models.ProcessStatusConcluded).Scan(&data.Summary.Active, &data.Summary.Concluded)
	if err != nil {
		return nil, fmt.Errorf("failed to query process counts: %w", err)
	}

	data.Monthly, err = r.monthlySeries(ctx)
	if err != nil {
		return nil, err
	}

	data.StatusBreakdown, err = r.statusBreakdown(ctx)
	if err != nil {
		return nil, err
	}

	data.Recent, err = r.recentProcesses(ctx)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (r *DashboardRepository) monthlySeries(ctx context.Context) ([]models.MonthCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT TO_CHAR(created_at, 'Mon') AS name, COUNT(*)::integer AS value
		FROM processes
		GROUP BY name
		ORDER BY MIN(created_at)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly series: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	series := make([]models.MonthCount, 0)

	for rows.Next() {
		var bucket models.MonthCount

		err := rows.Scan(&bucket.Name, &bucket.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly bucket: %w", err)
		}

		series = append(series, bucket)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating monthly series: %w", err)
	}

	return series, nil
}

func (r *DashboardRepository) statusBreakdown(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status AS name, COUNT(*)::integer AS value
		FROM processes
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status breakdown: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	breakdown := make([]models.StatusCount, 0)

	for rows.Next() {
		var slice models.StatusCount

		err := rows.Scan(&slice.Name, &slice.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status slice: %w", err)
		}

		breakdown = append(breakdown, slice)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating status breakdown: %w", err)
	}

	return breakdown, nil
}

func (r *DashboardRepository) recentProcesses(ctx context.Context) ([]models.RecentProcess, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, status, created_at
		FROM processes
		ORDER BY created_at DESC
		LIMIT 5
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent processes: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	recent := make([]models.RecentProcess, 0)

	for rows.Next() {
		var process models.RecentProcess

		err := rows.Scan(&process.ID, &process.Name, &process.Status, &process.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent process: %w", err)
		}

		recent = append(recent, process)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating recent processes: %w", err)
	}

	return recent, nil
}
