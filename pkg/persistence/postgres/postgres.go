// Package postgres provides the PostgreSQL persistence implementation for
// processes, stages, users and notifications.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/venturahq/tramite/pkg/persistence"
	"github.com/venturahq/tramite/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db               *sql.DB
	logger           *slog.Logger
	processRepo      *ProcessRepository
	stageRepo        *StageRepository
	userRepo         *UserRepository
	processTypeRepo  *ProcessTypeRepository
	notificationRepo *NotificationRepository
	dashboardRepo    *DashboardRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs pending
// schema migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:               database,
		logger:           logger,
		processRepo:      NewProcessRepository(database, logger),
		stageRepo:        NewStageRepository(database, logger),
		userRepo:         NewUserRepository(database, logger),
		processTypeRepo:  NewProcessTypeRepository(database),
		notificationRepo: NewNotificationRepository(database, logger),
		dashboardRepo:    NewDashboardRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Processes returns the process repository.
func (p *Persistence) Processes() persistence.ProcessRepository {
	return p.processRepo
}

// Stages returns the stage repository.
func (p *Persistence) Stages() persistence.StageRepository {
	return p.stageRepo
}

// Users returns the user repository.
func (p *Persistence) Users() persistence.UserRepository {
	return p.userRepo
}

// ProcessTypes returns the process-type repository.
func (p *Persistence) ProcessTypes() persistence.ProcessTypeRepository {
	return p.processTypeRepo
}

// Notifications returns the notification repository.
func (p *Persistence) Notifications() persistence.NotificationRepository {
	return p.notificationRepo
}

// Dashboard returns the dashboard repository.
func (p *Persistence) Dashboard() persistence.DashboardRepository {
	return p.dashboardRepo
}
