package models

import "time"

// DashboardData aggregates the numbers the admin dashboard renders.
type DashboardData struct {
	Summary         DashboardSummary `json:"summary"`
	Monthly         []MonthCount     `json:"bar_data"`
	StatusBreakdown []StatusCount    `json:"pie_data"`
	Recent          []RecentProcess  `json:"processes_data"`
}

// DashboardSummary holds the headline counters.
type DashboardSummary struct {
	Active    int `json:"active"`
	Concluded int `json:"concluded"`
}

// MonthCount is one bucket of the monthly creation series.
type MonthCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// StatusCount is one slice of the status breakdown.
type StatusCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// RecentProcess is one row of the recent-processes table.
type RecentProcess struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Status    ProcessStatus `json:"status"`
	CreatedAt time.Time     `json:"creation_date"`
}
