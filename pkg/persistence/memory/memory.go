// Package memory provides an in-memory persistence implementation with the
// same semantics as the postgres one. It backs unit tests and local
// experimentation; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

// Persistence keeps every aggregate in maps guarded by one mutex, which
// doubles as the transaction boundary: a progression operation holds the lock
// for its whole duration.
type Persistence struct {
	mu sync.Mutex

	clients       map[int64]*models.Client
	processes     map[int64]*models.Process
	stages        map[int64]*models.Stage
	users         map[int64]*models.User
	processTypes  []*models.ProcessType
	notifications []*models.Notification

	nextID int64
}

// NewPersistence creates an empty in-memory store with the default
// process-type catalogue seeded.
func NewPersistence() *Persistence {
	p := &Persistence{
		clients:       make(map[int64]*models.Client),
		processes:     make(map[int64]*models.Process),
		stages:        make(map[int64]*models.Stage),
		users:         make(map[int64]*models.User),
		notifications: make([]*models.Notification, 0),
	}

	for _, name := range []string{"Locação", "Venda", "Administração"} {
		p.processTypes = append(p.processTypes, &models.ProcessType{ID: p.newID(), Name: name})
	}

	return p
}

func (p *Persistence) newID() int64 {
	p.nextID++

	return p.nextID
}

// Processes returns the process repository.
func (p *Persistence) Processes() persistence.ProcessRepository {
	return &processRepository{p: p}
}

// Stages returns the stage repository.
func (p *Persistence) Stages() persistence.StageRepository {
	return &stageRepository{p: p}
}

// Users returns the user repository.
func (p *Persistence) Users() persistence.UserRepository {
	return &userRepository{p: p}
}

// ProcessTypes returns the process-type repository.
func (p *Persistence) ProcessTypes() persistence.ProcessTypeRepository {
	return &processTypeRepository{p: p}
}

// Notifications returns the notification repository.
func (p *Persistence) Notifications() persistence.NotificationRepository {
	return &notificationRepository{p: p}
}

// Dashboard returns the dashboard repository.
func (p *Persistence) Dashboard() persistence.DashboardRepository {
	return &dashboardRepository{p: p}
}

// HealthCheck always succeeds.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// stagesOf returns the process's stages ordered by stage order. Callers must
// hold the lock.
func (p *Persistence) stagesOf(processID int64) []*models.Stage {
	stages := make([]*models.Stage, 0)

	for _, stage := range p.stages {
		if stage.ProcessID == processID {
			stages = append(stages, stage)
		}
	}

	sort.Slice(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })

	return stages
}

// recordNotification appends a notification unless the same (user, stage,
// message) triple was already recorded. Callers must hold the lock.
func (p *Persistence) recordNotification(userID, stageID int64, message string) {
	for _, n := range p.notifications {
		if n.UserID == userID && n.StageID == stageID && n.Message == message {
			return
		}
	}

	p.notifications = append(p.notifications, &models.Notification{
		ID:        p.newID(),
		UserID:    userID,
		StageID:   stageID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}

// concludeIfComplete flips the process to concluded when its stage set is
// non-empty and fully finalized. Callers must hold the lock.
func (p *Persistence) concludeIfComplete(processID int64) bool {
	process, ok := p.processes[processID]
	if !ok || process.Status == models.ProcessStatusConcluded {
		return false
	}

	stages := p.stagesOf(processID)
	if len(stages) == 0 {
		return false
	}

	for _, stage := range stages {
		if stage.Status != models.StageStatusFinalized {
			return false
		}
	}

	process.Status = models.ProcessStatusConcluded

	return true
}

func copyStage(stage *models.Stage) *models.Stage {
	clone := *stage

	return &clone
}

func copyUser(user *models.User) *models.User {
	clone := *user

	return &clone
}
