package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/vedran77/commlink/internal/collab"
)

// FileStore keeps uploaded bytes in memory and hands out content-addressed
// URLs, stable for identical content.
type FileStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// Fail forces the next uploads to fail; used to exercise the
	// collaborator-failure path.
	Fail error
}

func NewFileStore() *FileStore {
	return &FileStore{blobs: make(map[string][]byte)}
}

func (f *FileStore) Upload(ctx context.Context, data []byte, meta collab.FileMeta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return "", f.Fail
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:8])
	f.blobs[key] = append([]byte(nil), data...)

	return fmt.Sprintf("mem://files/%s/%s", key, meta.Name), nil
}

// Get returns the stored bytes for a previously issued URL key.
func (f *FileStore) Get(key string) ([]byte, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.blobs[key]
	return data, ok
}
