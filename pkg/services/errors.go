// Package services implements the business operations over the persistence
// layer: authentication, user management, process upserts and the stage
// progression engine.
package services

import (
	"errors"

	"github.com/venturahq/tramite/pkg/persistence"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrPasswordRequired    = errors.New("password is required")
	ErrStagesRequired      = errors.New("at least one stage is required")
	ErrUnknownProcessType  = errors.New("unknown process type")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrEmailTaken          = persistence.ErrEmailTaken
	ErrProcessNotFound     = persistence.ErrProcessNotFound
	ErrStageNotFound       = persistence.ErrStageNotFound
	ErrUserNotFound        = persistence.ErrUserNotFound
	ErrProcessTypeNotFound = persistence.ErrProcessTypeNotFound
)

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrPasswordRequired) ||
		errors.Is(err, ErrStagesRequired) ||
		errors.Is(err, ErrUnknownProcessType) ||
		errors.Is(err, ErrInvalidRole)
}

// IsConflictError checks if an error is a business conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrEmailTaken)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrProcessNotFound) ||
		errors.Is(err, ErrStageNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProcessTypeNotFound)
}

// IsUnauthorizedError checks if an error should return HTTP 401.
func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidToken)
}
