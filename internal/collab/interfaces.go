// Package collab declares the external collaborator interfaces the core
// consumes. The network/presentation layer provides real implementations;
// the memory subpackage provides in-process ones for tests and the demo.
package collab

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vedran77/commlink/internal/domain"
)

// ErrUserNotFound is returned by directory lookups that resolve nothing.
var ErrUserNotFound = errors.New("user not found")

// FileMeta describes an upload.
type FileMeta struct {
	Name        string
	Size        int64
	ContentType string
}

// Directory resolves users by name. Lookups are asynchronous external
// calls; any error other than ErrUserNotFound is a collaborator failure.
type Directory interface {
	SearchUser(ctx context.Context, query string) (*domain.User, error)
	ResolveUsername(ctx context.Context, username string) (uuid.UUID, error)
}

// FileStore uploads file bytes and returns a stable URL used as a
// message's file reference.
type FileStore interface {
	Upload(ctx context.Context, data []byte, meta FileMeta) (string, error)
}
