// Package web provides HTTP request and response types for the process API.
package web

import (
	"time"

	"github.com/venturahq/tramite/pkg/models"
)

// LoginRequest represents the request body for authenticating.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the minted token and the authenticated user.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// CreateUserRequest represents the request body for registering an account.
type CreateUserRequest struct {
	Name     string      `json:"name"           validate:"required"`
	Email    string      `json:"email"          validate:"required,email"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"       validate:"required,min=6"`
	Role     models.Role `json:"role,omitempty" validate:"omitempty,oneof=admin staff"`
}

// UpdateUserRequest represents the request body for updating an account. An
// empty password keeps the current one.
type UpdateUserRequest struct {
	Name     string      `json:"name"           validate:"required"`
	Email    string      `json:"email"          validate:"required,email"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"       validate:"omitempty,min=6"`
	Role     models.Role `json:"role,omitempty" validate:"omitempty,oneof=admin staff"`
}

// ResetPasswordRequest represents the request body for resetting a password
// by email.
type ResetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ClientPayload identifies the client of a process upsert.
type ClientPayload struct {
	Name  string `json:"name"  validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// ProcessPayload identifies the process of an upsert.
type ProcessPayload struct {
	Name   string `json:"name"    validate:"required"`
	TypeID int64  `json:"type_id" validate:"required"`
}

// StagePayload is one stage of an upsert. Nil fields keep whatever the
// matched stage already has.
type StagePayload struct {
	Name    string     `json:"name" validate:"required"`
	UserID  *int64     `json:"user_id,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Urgent  *bool      `json:"urgent,omitempty"`
	Notes   *string    `json:"notes,omitempty"`
}

// UpsertProcessRequest represents the request body for creating or updating
// a process with its client and stage list.
type UpsertProcessRequest struct {
	Client  ClientPayload  `json:"client"  validate:"required"`
	Process ProcessPayload `json:"process" validate:"required"`
	Stages  []StagePayload `json:"stages"  validate:"required,min=1,dive"`
}

func (r *UpsertProcessRequest) toModel(processID *int64) models.ProcessUpsert {
	upsert := models.ProcessUpsert{
		ProcessID: processID,
		Client: models.ClientInput{
			Name:  r.Client.Name,
			Phone: r.Client.Phone,
		},
		Process: models.ProcessInput{
			Name:   r.Process.Name,
			TypeID: r.Process.TypeID,
		},
	}

	for _, stage := range r.Stages {
		upsert.Stages = append(upsert.Stages, models.StageInput{
			Name:    stage.Name,
			UserID:  stage.UserID,
			DueDate: stage.DueDate,
			Urgent:  stage.Urgent,
			Notes:   stage.Notes,
		})
	}

	return upsert
}
