package memory

import (
	"context"
	"sort"
	"time"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

type userRepository struct {
	p *Persistence
}

func (r *userRepository) List(_ context.Context) ([]*models.User, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.list(func(*models.User) bool { return true }), nil
}

func (r *userRepository) ListByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.list(func(u *models.User) bool { return u.Role == role }), nil
}

// list filters and orders users by id. Callers must hold the lock.
func (r *userRepository) list(keep func(*models.User) bool) []*models.User {
	users := make([]*models.User, 0)

	for _, user := range r.p.users {
		if keep(user) {
			users = append(users, copyUser(user))
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	user, ok := r.p.users[id]
	if !ok {
		return nil, nil
	}

	return copyUser(user), nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, user := range r.p.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}

	return nil, nil
}

func (r *userRepository) Create(_ context.Context, user *models.User) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, existing := range r.p.users {
		if existing.Email == user.Email {
			return persistence.ErrEmailTaken
		}
	}

	user.ID = r.p.newID()
	user.CreatedAt = time.Now().UTC()
	r.p.users[user.ID] = copyUser(user)

	return nil
}

func (r *userRepository) Update(_ context.Context, user *models.User) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	existing, ok := r.p.users[user.ID]
	if !ok {
		return persistence.ErrUserNotFound
	}

	for _, other := range r.p.users {
		if other.ID != user.ID && other.Email == user.Email {
			return persistence.ErrEmailTaken
		}
	}

	user.CreatedAt = existing.CreatedAt
	r.p.users[user.ID] = copyUser(user)

	return nil
}

func (r *userRepository) Delete(_ context.Context, id int64) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.users[id]; !ok {
		return persistence.ErrUserNotFound
	}

	delete(r.p.users, id)

	return nil
}

func (r *userRepository) UpdatePasswordByEmail(_ context.Context, email, passwordHash string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, user := range r.p.users {
		if user.Email == email {
			user.PasswordHash = passwordHash

			return nil
		}
	}

	return persistence.ErrUserNotFound
}
