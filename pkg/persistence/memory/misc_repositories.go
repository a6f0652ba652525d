package memory

import (
	"context"
	"sort"

	"github.com/venturahq/tramite/pkg/models"
)

type processTypeRepository struct {
	p *Persistence
}

func (r *processTypeRepository) List(_ context.Context) ([]*models.ProcessType, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	types := make([]*models.ProcessType, 0, len(r.p.processTypes))

	for _, processType := range r.p.processTypes {
		clone := *processType
		types = append(types, &clone)
	}

	return types, nil
}

type notificationRepository struct {
	p *Persistence
}

func (r *notificationRepository) ListByUser(_ context.Context, userID int64) ([]*models.Notification, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	notifications := make([]*models.Notification, 0)

	for _, notification := range r.p.notifications {
		if notification.UserID == userID {
			clone := *notification
			notifications = append(notifications, &clone)
		}
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	return notifications, nil
}

type dashboardRepository struct {
	p *Persistence
}

func (r *dashboardRepository) Summary(_ context.Context) (*models.DashboardData, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	data := &models.DashboardData{
		Monthly:         make([]models.MonthCount, 0),
		StatusBreakdown: make([]models.StatusCount, 0),
		Recent:          make([]models.RecentProcess, 0),
	}

	processes := make([]*models.Process, 0, len(r.p.processes))

	for _, process := range r.p.processes {
		processes = append(processes, process)

		if process.Status == models.ProcessStatusConcluded {
			data.Summary.Concluded++
		} else {
			data.Summary.Active++
		}
	}

	sort.Slice(processes, func(i, j int) bool {
		return processes[i].CreatedAt.Before(processes[j].CreatedAt)
	})

	monthIndex := map[string]int{}
	statusIndex := map[string]int{}

	for _, process := range processes {
		month := process.CreatedAt.Format("Jan")

		if i, ok := monthIndex[month]; ok {
			data.Monthly[i].Value++
		} else {
			monthIndex[month] = len(data.Monthly)
			data.Monthly = append(data.Monthly, models.MonthCount{Name: month, Value: 1})
		}

		status := string(process.Status)

		if i, ok := statusIndex[status]; ok {
			data.StatusBreakdown[i].Value++
		} else {
			statusIndex[status] = len(data.StatusBreakdown)
			data.StatusBreakdown = append(data.StatusBreakdown, models.StatusCount{Name: status, Value: 1})
		}
	}

	for i := len(processes) - 1; i >= 0 && len(data.Recent) < 5; i-- {
		process := processes[i]

		data.Recent = append(data.Recent, models.RecentProcess{
			ID:        process.ID,
			Name:      process.Name,
			Status:    process.Status,
			CreatedAt: process.CreatedAt,
		})
	}

	return data, nil
}
