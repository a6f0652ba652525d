package services

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

// bcryptCost matches the cost the seeded accounts were hashed with.
const bcryptCost = 10

// UserInput carries the mutable account fields. Password is plain text and
// hashed here; on update an empty password keeps the current hash.
type UserInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     models.Role
}

// User manages staff accounts.
type User struct {
	persistence persistence.Persistence
}

// NewUser creates a new user service.
func NewUser(persistence persistence.Persistence) *User {
	return &User{persistence: persistence}
}

// List returns all accounts.
func (u *User) List(ctx context.Context) ([]*models.User, error) {
	return u.persistence.Users().List(ctx)
}

// ListStaff returns the accounts stages can be assigned to.
func (u *User) ListStaff(ctx context.Context) ([]*models.User, error) {
	return u.persistence.Users().ListByRole(ctx, models.RoleStaff)
}

// Get returns one account, or ErrUserNotFound.
func (u *User) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := u.persistence.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Create registers a new account with a freshly hashed password.
func (u *User) Create(ctx context.Context, input UserInput) (*models.User, error) {
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}

	role := input.Role
	if role == "" {
		role = models.RoleStaff
	}

	if role != models.RoleAdmin && role != models.RoleStaff {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		Role:         role,
	}

	err = u.persistence.Users().Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Update rewrites the account. The password hash only changes when a new
// password is supplied.
func (u *User) Update(ctx context.Context, id int64, input UserInput) (*models.User, error) {
	user, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = input.Name
	user.Email = input.Email
	user.Phone = input.Phone

	if input.Role != "" {
		if input.Role != models.RoleAdmin && input.Role != models.RoleStaff {
			return nil, ErrInvalidRole
		}

		user.Role = input.Role
	}

	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		user.PasswordHash = string(hash)
	}

	err = u.persistence.Users().Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// Delete removes the account.
func (u *User) Delete(ctx context.Context, id int64) error {
	err := u.persistence.Users().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// ResetPassword replaces the password of the account matching the email.
func (u *User) ResetPassword(ctx context.Context, email, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = u.persistence.Users().UpdatePasswordByEmail(ctx, email, string(hash))
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	return nil
}
