package memory

import (
	"context"
	"sync"

	"quizarena-service/internal/domain"
)

// UserDirectory is an in-memory mirror of the external identity store.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]domain.User)}
}

func (d *UserDirectory) Get(_ context.Context, id string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (d *UserDirectory) Upsert(_ context.Context, user domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
	return nil
}
