package objectclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/markdave123-py/Examcraft/internal/core"
)

// ErrObjectNotFound is returned when reading a key that is not staged.
var ErrObjectNotFound = errors.New("object not found")

var _ core.ObjectClient = (*MemoryStager)(nil)

// MemoryStager stages objects in process memory. Used when no AWS
// credentials are configured and by tests.
type MemoryStager struct {
	bucket  string
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStager(bucket string) *MemoryStager {
	return &MemoryStager{bucket: bucket, objects: make(map[string][]byte)}
}

func (m *MemoryStager) PutObject(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	return fmt.Sprintf("mem://%s/%s", m.bucket, key), nil
}

func (m *MemoryStager) OpenObject(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("memory object %s: %w", key, ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStager) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Len reports how many objects are staged.
func (m *MemoryStager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
