package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/notifier"
	"github.com/venturahq/tramite/pkg/persistence"
)

// defaultChecklist is the fixed stage sequence the business runs every
// process through. Stage listing reports entries not persisted yet as
// pending and unassigned.
var defaultChecklist = []string{
	"Documentação",
	"Análise",
	"Contrato",
	"Planilha",
	"Assinatura C.",
	"Carta de AP.",
	"Imobzi",
	"Vistoria",
	"Assinatura V.",
	"Garantia",
	"Pagamento",
	"Contrato ADM",
	"Entrega",
	"Seguro INC.",
	"Troca T.",
}

// unassigned is the placeholder reported for checklist entries without a
// responsible user.
const unassigned = "Não atribuído"

// ChecklistEntry is one row of the stage listing: a checklist name with the
// persisted status and assignee when the stage exists.
type ChecklistEntry struct {
	Name     string             `json:"name"`
	Status   models.StageStatus `json:"status"`
	Assignee string             `json:"assignee"`
}

// Checklist is the stage listing of one process.
type Checklist struct {
	ProcessID   int64            `json:"process_id"`
	ProcessName string           `json:"process_name"`
	Stages      []ChecklistEntry `json:"stages"`
}

// Process implements process CRUD and the upsert flow.
type Process struct {
	persistence persistence.Persistence
	notifier    notifier.Service
	logger      *slog.Logger
}

// NewProcess creates a new process service.
func NewProcess(persistence persistence.Persistence, notifierService notifier.Service, logger *slog.Logger) *Process {
	return &Process{
		persistence: persistence,
		notifier:    notifierService,
		logger:      logger.With("module", "process_service"),
	}
}

// List returns all processes. Conclusion is maintained at write time, but a
// recheck runs here as well so that processes touched by older data or
// manual edits converge on listing.
func (p *Process) List(ctx context.Context) ([]*models.ProcessSummary, error) {
	summaries, err := p.persistence.Processes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	for _, summary := range summaries {
		if summary.Status == models.ProcessStatusConcluded {
			continue
		}

		concluded, err := p.persistence.Processes().ConcludeIfComplete(ctx, summary.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to recheck process conclusion: %w", err)
		}

		if concluded {
			summary.Status = models.ProcessStatusConcluded
			summary.CurrentStage = "Concluded"
		}
	}

	return summaries, nil
}

// Get returns one process with client and stages, or ErrProcessNotFound.
func (p *Process) Get(ctx context.Context, id int64) (*models.ProcessDetail, error) {
	detail, err := p.persistence.Processes().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get process: %w", err)
	}

	if detail == nil {
		return nil, ErrProcessNotFound
	}

	return detail, nil
}

// Upsert creates or updates a process with its client and stage list in one
// transaction, then fans out a notification for every stage that entered
// in-progress with an assignee. Fan-out runs after the commit and never
// fails the request.
func (p *Process) Upsert(ctx context.Context, input models.ProcessUpsert) (*models.UpsertResult, error) {
	if len(input.Stages) == 0 {
		return nil, ErrStagesRequired
	}

	err := p.validateType(ctx, input.Process.TypeID)
	if err != nil {
		return nil, err
	}

	result, err := p.persistence.Processes().Upsert(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert process: %w", err)
	}

	for _, activated := range result.Activated {
		if activated.Assignee == nil {
			continue
		}

		notifyAssignment(ctx, p.notifier, activated.Assignee, notifier.Task{
			StageID:     activated.Stage.ID,
			ProcessID:   result.ProcessID,
			Name:        activated.Stage.Name,
			ProcessName: input.Process.Name,
		})
	}

	return result, nil
}

func (p *Process) validateType(ctx context.Context, typeID int64) error {
	types, err := p.persistence.ProcessTypes().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list process types: %w", err)
	}

	for _, processType := range types {
		if processType.ID == typeID {
			return nil
		}
	}

	return ErrUnknownProcessType
}

// Delete removes the process, its stages and the owning client when no
// other process references it.
func (p *Process) Delete(ctx context.Context, id int64) (bool, error) {
	clientDeleted, err := p.persistence.Processes().Delete(ctx, id)
	if err != nil {
		if persistence.IsProcessNotFound(err) {
			return false, err
		}

		return false, fmt.Errorf("failed to delete process: %w", err)
	}

	return clientDeleted, nil
}

// ListStages merges the process's persisted stages over the default
// checklist. Checklist entries without a persisted stage come back pending
// and unassigned.
func (p *Process) ListStages(ctx context.Context, processID int64) (*Checklist, error) {
	detail, err := p.Get(ctx, processID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*models.Stage, len(detail.Stages))
	for _, stage := range detail.Stages {
		byName[stage.Name] = stage
	}

	assignees, err := p.assigneeNames(ctx, detail.Stages)
	if err != nil {
		return nil, err
	}

	checklist := &Checklist{
		ProcessID:   detail.ID,
		ProcessName: detail.Name,
		Stages:      make([]ChecklistEntry, 0, len(defaultChecklist)),
	}

	for _, name := range defaultChecklist {
		entry := ChecklistEntry{
			Name:     name,
			Status:   models.StageStatusPending,
			Assignee: unassigned,
		}

		if stage, ok := byName[name]; ok {
			entry.Status = stage.Status

			if stage.UserID != nil {
				if assignee, ok := assignees[*stage.UserID]; ok {
					entry.Assignee = assignee
				}
			}
		}

		checklist.Stages = append(checklist.Stages, entry)
	}

	return checklist, nil
}

func (p *Process) assigneeNames(ctx context.Context, stages []*models.Stage) (map[int64]string, error) {
	names := make(map[int64]string)

	for _, stage := range stages {
		if stage.UserID == nil {
			continue
		}

		if _, ok := names[*stage.UserID]; ok {
			continue
		}

		user, err := p.persistence.Users().GetByID(ctx, *stage.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assignee: %w", err)
		}

		if user != nil {
			names[user.ID] = user.Name
		}
	}

	return names, nil
}

// RecomputeStatus re-evaluates the conclusion of one process.
func (p *Process) RecomputeStatus(ctx context.Context, id int64) (bool, error) {
	return p.persistence.Processes().ConcludeIfComplete(ctx, id)
}
