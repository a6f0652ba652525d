package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

type processRepository struct {
	p *Persistence
}

func (r *processRepository) List(_ context.Context) ([]*models.ProcessSummary, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	summaries := make([]*models.ProcessSummary, 0)

	for _, process := range r.p.processes {
		client := r.p.clients[process.ClientID]

		summary := &models.ProcessSummary{
			ID:           process.ID,
			Name:         process.Name,
			Status:       process.Status,
			CurrentStage: "Concluded",
		}

		if client != nil {
			summary.ClientName = client.Name
		}

		for _, stage := range r.p.stagesOf(process.ID) {
			summary.Stages = append(summary.Stages, copyStage(stage))

			if summary.CurrentStage == "Concluded" && stage.Status == models.StageStatusInProgress {
				summary.CurrentStage = stage.Name
			}
		}

		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	return summaries, nil
}

func (r *processRepository) GetByID(_ context.Context, id int64) (*models.ProcessDetail, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	process, ok := r.p.processes[id]
	if !ok {
		return nil, nil
	}

	detail := &models.ProcessDetail{Process: *process}

	if client, ok := r.p.clients[process.ClientID]; ok {
		clone := *client
		detail.Client = &clone
	}

	for _, stage := range r.p.stagesOf(id) {
		detail.Stages = append(detail.Stages, copyStage(stage))
	}

	return detail, nil
}

func (r *processRepository) Upsert(_ context.Context, input models.ProcessUpsert) (*models.UpsertResult, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var (
		client  *models.Client
		process *models.Process
	)

	if input.ProcessID != nil {
		existing, ok := r.p.processes[*input.ProcessID]
		if !ok {
			return nil, persistence.ErrProcessNotFound
		}

		process = existing
		process.Name = input.Process.Name
		process.TypeID = input.Process.TypeID

		client = r.p.clients[process.ClientID]
		if client != nil {
			client.Name = input.Client.Name
			client.Phone = input.Client.Phone
		}
	} else {
		for _, candidate := range r.p.clients {
			if candidate.Name == input.Client.Name && candidate.Phone == input.Client.Phone {
				client = candidate

				break
			}
		}

		if client == nil {
			client = &models.Client{
				ID:        r.p.newID(),
				Name:      input.Client.Name,
				Phone:     input.Client.Phone,
				CreatedAt: time.Now().UTC(),
			}
			r.p.clients[client.ID] = client
		}

		for _, candidate := range r.p.processes {
			if candidate.ClientID == client.ID && candidate.TypeID == input.Process.TypeID {
				process = candidate

				break
			}
		}

		if process == nil {
			process = &models.Process{
				ID:        r.p.newID(),
				Name:      input.Process.Name,
				TypeID:    input.Process.TypeID,
				ClientID:  client.ID,
				Status:    models.ProcessStatusInProgress,
				CreatedAt: time.Now().UTC(),
			}
			r.p.processes[process.ID] = process
		}
	}

	activated := r.upsertStages(process, input.Stages)

	result := &models.UpsertResult{
		ProcessID: process.ID,
		Activated: activated,
	}

	if client != nil {
		result.ClientID = client.ID
	}

	return result, nil
}

// upsertStages applies the positional status rule: first stage in-progress,
// the rest pending, with an existing finalized status kept as is. Callers
// must hold the lock.
func (r *processRepository) upsertStages(process *models.Process, inputs []models.StageInput) []*models.ActivatedStage {
	activated := make([]*models.ActivatedStage, 0)

	for i, input := range inputs {
		order := i + 1

		positional := models.StageStatusPending
		if order == 1 {
			positional = models.StageStatusInProgress
		}

		var stage *models.Stage

		for _, candidate := range r.p.stagesOf(process.ID) {
			if candidate.Name == input.Name {
				stage = candidate

				break
			}
		}

		var previousState models.StageStatus

		if stage != nil {
			previousState = stage.Status

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

			stage.Order = order

			stage.Status = positional
			if previousState == models.StageStatusFinalized {
				stage.Status = models.StageStatusFinalized
			}
		} else {
			stage = &models.Stage{
				ID:        r.p.newID(),
				ProcessID: process.ID,
				Name:      input.Name,
				Order:     order,
				Status:    positional,
				UserID:    input.UserID,
				DueDate:   input.DueDate,
				Urgent:    input.Urgent != nil && *input.Urgent,
			}

			if input.Notes != nil {
				stage.Notes = *input.Notes
			}

			r.p.stages[stage.ID] = stage
		}

		entered := stage.Status == models.StageStatusInProgress &&
			previousState != models.StageStatusInProgress

		if entered && stage.UserID != nil {
			message := fmt.Sprintf("You have a new task: %s in process %s", stage.Name, process.Name)
			r.p.recordNotification(*stage.UserID, stage.ID, message)

			var assignee *models.User
			if user, ok := r.p.users[*stage.UserID]; ok {
				assignee = copyUser(user)
			}

			activated = append(activated, &models.ActivatedStage{
				Stage:    copyStage(stage),
				Assignee: assignee,
			})
		}
	}

	r.renumberLeftoverStages(process.ID, inputs)

	return activated
}

// renumberLeftoverStages pushes stages that are no longer part of the
// supplied list behind it, keeping their relative order, so stage orders
// stay unique within the process after a reorder or replacement.
func (r *processRepository) renumberLeftoverStages(processID int64, inputs []models.StageInput) {
	listed := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		listed[input.Name] = true
	}

	next := len(inputs) + 1

	for _, stage := range r.p.stagesOf(processID) {
		if listed[stage.Name] {
			continue
		}

		stage.Order = next
		next++
	}
}

func (r *processRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	process, ok := r.p.processes[id]
	if !ok {
		return false, persistence.ErrProcessNotFound
	}

	for _, stage := range r.p.stagesOf(id) {
		delete(r.p.stages, stage.ID)
	}

	clientID := process.ClientID
	delete(r.p.processes, id)

	for _, remaining := range r.p.processes {
		if remaining.ClientID == clientID {
			return false, nil
		}
	}

	delete(r.p.clients, clientID)

	return true, nil
}

func (r *processRepository) ConcludeIfComplete(_ context.Context, id int64) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.concludeIfComplete(id), nil
}
