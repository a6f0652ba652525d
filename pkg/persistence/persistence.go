// Package persistence provides the data storage abstraction layer for
// processes, stages, users and notifications.
package persistence

import (
	"context"
	"time"

	"github.com/venturahq/tramite/pkg/models"
)

// Persistence is the root storage interface. Implementations bundle one
// repository per aggregate and share a single underlying store so that the
// multi-table progression operations can run inside one transaction.
type Persistence interface {
	Processes() ProcessRepository
	Stages() StageRepository
	Users() UserRepository
	ProcessTypes() ProcessTypeRepository
	Notifications() NotificationRepository
	Dashboard() DashboardRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ProcessRepository handles processes together with their client and stage
// rows. Upsert and Delete are transactional across all three tables.
type ProcessRepository interface {
	List(ctx context.Context) ([]*models.ProcessSummary, error)

	// GetByID returns nil, nil when the process does not exist.
	GetByID(ctx context.Context, id int64) (*models.ProcessDetail, error)

	// Upsert deduplicates the client on (name, phone), the process on
	// (client, type) and every stage on (process, name), patching mutable
	// stage fields on match. The first supplied stage becomes in-progress
	// and the rest pending, except that a finalized status is sticky and
	// never downgraded. A notification row is written for every stage
	// entering in-progress with an assignee. All writes share one
	// transaction; any failure rolls back the whole batch.
	Upsert(ctx context.Context, input models.ProcessUpsert) (*models.UpsertResult, error)

	// Delete removes the process and its stages, and the owning client when
	// it has no other process left. Reports whether the client went too.
	Delete(ctx context.Context, id int64) (clientDeleted bool, err error)

	// ConcludeIfComplete marks the process concluded when its stage set is
	// non-empty and fully finalized. Reports whether a transition happened.
	ConcludeIfComplete(ctx context.Context, id int64) (bool, error)
}

// StageRepository handles stages and the progression over them.
type StageRepository interface {
	// Finalize sets the stage to finalized, activates the stage at order+1
	// when that one is still pending, records a notification for the
	// activated stage's assignee and re-evaluates process conclusion, all
	// inside one transaction. Returns ErrStageNotFound when the id does not
	// resolve.
	Finalize(ctx context.Context, id int64) (*models.FinalizeResult, error)

	ListByProcess(ctx context.Context, processID int64) ([]*models.Stage, error)
	TasksByUser(ctx context.Context, userID int64) ([]*models.Task, error)
	CountInProgressByUser(ctx context.Context, userID int64) (int, error)

	// Overdue returns in-progress stages with a due date before asOf,
	// together with their assignees.
	Overdue(ctx context.Context, asOf time.Time) ([]*models.OverdueTask, error)
}

// UserRepository handles staff accounts.
type UserRepository interface {
	List(ctx context.Context) ([]*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)

	// GetByID and GetByEmail return nil, nil when no user matches.
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error
}

// ProcessTypeRepository reads the process-type catalogue.
type ProcessTypeRepository interface {
	List(ctx context.Context) ([]*models.ProcessType, error)
}

// NotificationRepository reads the append-only notification log. Writes
// happen inside the progression transactions, never through this interface.
type NotificationRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]*models.Notification, error)
}

// DashboardRepository computes the dashboard aggregates.
type DashboardRepository interface {
	Summary(ctx context.Context) (*models.DashboardData, error)
}
