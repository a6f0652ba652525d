package persistence

import "errors"

// Standard persistence error types that all implementations should use.
var (
	// ErrProcessNotFound indicates a process was not found by the given identifier.
	ErrProcessNotFound = errors.New("process not found")

	// ErrStageNotFound indicates a stage was not found by the given identifier.
	ErrStageNotFound = errors.New("stage not found")

	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrProcessTypeNotFound indicates an unknown process type was referenced.
	ErrProcessTypeNotFound = errors.New("process type not found")

	// ErrEmailTaken indicates another user already owns the email address.
	ErrEmailTaken = errors.New("email already in use")
)

// IsProcessNotFound checks if an error indicates a process was not found.
func IsProcessNotFound(err error) bool {
	return errors.Is(err, ErrProcessNotFound)
}

// IsStageNotFound checks if an error indicates a stage was not found.
func IsStageNotFound(err error) bool {
	return errors.Is(err, ErrStageNotFound)
}

// IsUserNotFound checks if an error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsEmailTaken checks if an error indicates a duplicate email address.
func IsEmailTaken(err error) bool {
	return errors.Is(err, ErrEmailTaken)
}
