package models

import "time"

// StageStatus represents the lifecycle state of a single stage.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusFinalized  StageStatus = "finalized"
)

// Stage is one ordered unit of work within a process. Order is 1-based and
// unique within a process; the schema enforces that.
type Stage struct {
	ID        int64       `json:"id"`
	ProcessID int64       `json:"process_id"`
	Name      string      `json:"name"`
	Order     int         `json:"order"`
	Status    StageStatus `json:"status"`
	UserID    *int64      `json:"user_id,omitempty"`
	DueDate   *time.Time  `json:"due_date,omitempty"`
	Urgent    bool        `json:"urgent"`
	Notes     string      `json:"notes,omitempty"`
}

// StageInput is the per-stage payload of an upsert. Nil pointer fields keep
// whatever the existing stage already has.
type StageInput struct {
	Name    string     `json:"name" validate:"required"`
	UserID  *int64     `json:"user_id,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Urgent  *bool      `json:"urgent,omitempty"`
	Notes   *string    `json:"notes,omitempty"`
}

// Task is a stage projected into a user's work queue, joined with the name
// of the process it belongs to.
type Task struct {
	StageID     int64       `json:"id"`
	Name        string      `json:"name"`
	Status      StageStatus `json:"status"`
	Order       int         `json:"order"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Urgent      bool        `json:"urgent"`
	ProcessID   int64       `json:"process_id"`
	ProcessName string      `json:"process_name"`
}

// OverdueTask is a task past its due date together with the assignee to
// remind.
type OverdueTask struct {
	Task     Task
	Assignee *User
}

// FinalizeResult reports everything a stage finalization changed inside one
// transaction.
type FinalizeResult struct {
	Finalized        *Stage
	Activated        *Stage // next stage moved to in-progress, nil if none
	Assignee         *User  // assignee of the activated stage, nil if none
	ProcessID        int64
	ProcessName      string
	ProcessConcluded bool
}
