package memory

import (
	"context"
	"sync"

	"github.com/xavierca1/diag-leads/internal/entity"
)

type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

func NewUserDirectory(users ...entity.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]entity.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *UserDirectory) Add(user entity.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *UserDirectory) FindUser(ctx context.Context, id string) (*entity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return &user, nil
}
