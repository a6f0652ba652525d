package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

type stageRepository struct {
	p *Persistence
}

func (r *stageRepository) Finalize(_ context.Context, id int64) (*models.FinalizeResult, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stage, ok := r.p.stages[id]
	if !ok {
		return nil, persistence.ErrStageNotFound
	}

	stage.Status = models.StageStatusFinalized

	result := &models.FinalizeResult{
		Finalized: copyStage(stage),
		ProcessID: stage.ProcessID,
	}

	if process, ok := r.p.processes[stage.ProcessID]; ok {
		result.ProcessName = process.Name
	}

	for _, candidate := range r.p.stagesOf(stage.ProcessID) {
		if candidate.Order != stage.Order+1 {
			continue
		}

		if candidate.Status == models.StageStatusPending {
			candidate.Status = models.StageStatusInProgress
			result.Activated = copyStage(candidate)

			if candidate.UserID != nil {
				message := fmt.Sprintf("You have a new task: %s in process %s", candidate.Name, result.ProcessName)
				r.p.recordNotification(*candidate.UserID, candidate.ID, message)

				if user, ok := r.p.users[*candidate.UserID]; ok {
					result.Assignee = copyUser(user)
				}
			}
		}

		break
	}

	result.ProcessConcluded = r.p.concludeIfComplete(stage.ProcessID)

	return result, nil
}

func (r *stageRepository) ListByProcess(_ context.Context, processID int64) ([]*models.Stage, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.processes[processID]; !ok {
		return nil, persistence.ErrProcessNotFound
	}

	stages := make([]*models.Stage, 0)

	for _, stage := range r.p.stagesOf(processID) {
		stages = append(stages, copyStage(stage))
	}

	return stages, nil
}

func (r *stageRepository) TasksByUser(_ context.Context, userID int64) ([]*models.Task, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	tasks := make([]*models.Task, 0)

	for _, stage := range r.p.stages {
		if stage.UserID == nil || *stage.UserID != userID {
			continue
		}

		// Pending stages are not actionable until advancement activates
		// them.
		if stage.Status != models.StageStatusInProgress {
			continue
		}

		task := &models.Task{
			StageID:   stage.ID,
			Name:      stage.Name,
			Status:    stage.Status,
			Order:     stage.Order,
			DueDate:   stage.DueDate,
			Urgent:    stage.Urgent,
			ProcessID: stage.ProcessID,
		}

		if process, ok := r.p.processes[stage.ProcessID]; ok {
			task.ProcessName = process.Name
		}

		tasks = append(tasks, task)
	}

	// By stage order, then earliest due date with undated tasks last.
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]

		if a.Order != b.Order {
			return a.Order < b.Order
		}

		switch {
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	})

	return tasks, nil
}

func (r *stageRepository) CountInProgressByUser(_ context.Context, userID int64) (int, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	count := 0

	for _, stage := range r.p.stages {
		if stage.UserID != nil && *stage.UserID == userID && stage.Status == models.StageStatusInProgress {
			count++
		}
	}

	return count, nil
}

func (r *stageRepository) Overdue(_ context.Context, asOf time.Time) ([]*models.OverdueTask, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	overdue := make([]*models.OverdueTask, 0)

	for _, stage := range r.p.stages {
		if stage.Status != models.StageStatusInProgress || stage.DueDate == nil || !stage.DueDate.Before(asOf) {
			continue
		}

		if stage.UserID == nil {
			continue
		}

		user, ok := r.p.users[*stage.UserID]
		if !ok {
			continue
		}

		task := models.Task{
			StageID:   stage.ID,
			Name:      stage.Name,
			Status:    stage.Status,
			Order:     stage.Order,
			DueDate:   stage.DueDate,
			Urgent:    stage.Urgent,
			ProcessID: stage.ProcessID,
		}

		if process, ok := r.p.processes[stage.ProcessID]; ok {
			task.ProcessName = process.Name
		}

		overdue = append(overdue, &models.OverdueTask{Task: task, Assignee: copyUser(user)})
	}

	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].Task.DueDate.Before(*overdue[j].Task.DueDate)
	})

	return overdue, nil
}
