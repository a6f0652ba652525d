package models

import "time"

// ProcessStatus represents the aggregate state of a process. A process is
// concluded exactly when every one of its stages is finalized; it is never
// reopened automatically.
type ProcessStatus string

const (
	ProcessStatusInProgress ProcessStatus = "in_progress"
	ProcessStatusConcluded  ProcessStatus = "concluded"
)

// ProcessType is a catalogue entry (sale, letting, ...) processes refer to.
type ProcessType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Process is a client-facing transaction composed of ordered stages.
type Process struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	TypeID    int64         `json:"type_id"`
	ClientID  int64         `json:"client_id"`
	Status    ProcessStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// ProcessSummary is the listing projection: process plus client name, the
// name of the stage currently in progress and the full stage set.
type ProcessSummary struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Status       ProcessStatus `json:"status"`
	ClientName   string        `json:"client_name"`
	CurrentStage string        `json:"current_stage"`
	Stages       []*Stage      `json:"stages"`
}

// ProcessDetail is a process with its client and ordered stages embedded.
type ProcessDetail struct {
	Process
	Client *Client  `json:"client"`
	Stages []*Stage `json:"stages"`
}

// ClientInput identifies or creates a client during an upsert.
type ClientInput struct {
	Name  string `json:"name"  validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// ProcessInput identifies or creates a process during an upsert.
type ProcessInput struct {
	Name   string `json:"name"    validate:"required"`
	TypeID int64  `json:"type_id" validate:"required"`
}

// ProcessUpsert is the full input of UpsertProcessWithStages. When ProcessID
// is set the process must already exist and its client/type rows are patched
// instead of deduplicated.
type ProcessUpsert struct {
	ProcessID *int64
	Client    ClientInput
	Process   ProcessInput
	Stages    []StageInput
}

// ActivatedStage is a stage that entered in-progress during an upsert,
// together with its assignee when one is set.
type ActivatedStage struct {
	Stage    *Stage
	Assignee *User
}

// UpsertResult reports the rows an upsert resolved or created.
type UpsertResult struct {
	ClientID  int64
	ProcessID int64
	Activated []*ActivatedStage
}
