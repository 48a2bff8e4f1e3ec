// Package memory holds in-process collaborator implementations used by
// tests and the demo binary.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vedran77/commlink/internal/collab"
	"github.com/vedran77/commlink/internal/domain"
)

// Directory is an in-memory user directory keyed by username
// (case-insensitive).
type Directory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

func NewDirectory(users ...domain.User) *Directory {
	d := &Directory{users: make(map[uuid.UUID]domain.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Add registers or replaces a user.
func (d *Directory) Add(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) SearchUser(ctx context.Context, query string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(strings.TrimPrefix(query, "@"))

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.SameUsername(query) {
			found := u
			return &found, nil
		}
	}
	return nil, collab.ErrUserNotFound
}

func (d *Directory) ResolveUsername(ctx context.Context, username string) (uuid.UUID, error) {
	u, err := d.SearchUser(ctx, username)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}
