package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

var _ core.JobStore = (*MemoryStore)(nil)

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]models.IngestionJob
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]models.IngestionJob)}
}

func (m *MemoryStore) CreateJob(_ context.Context, job *models.IngestionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	m.jobs[job.ID] = *job
	m.order = append(m.order, job.ID)
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (*models.IngestionJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

// LatestJob walks jobs newest first; creation order breaks timestamp ties.
func (m *MemoryStore) LatestJob(_ context.Context, ownerID string) (*models.IngestionJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.IngestionJob
	for i := len(m.order) - 1; i >= 0; i-- {
		j := m.jobs[m.order[i]]
		if j.OwnerID != ownerID {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = &j
		}
	}
	return latest, nil
}

func (m *MemoryStore) UpdateJob(_ context.Context, job *models.IngestionJob, from models.JobStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.jobs[job.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	m.jobs[job.ID] = *job
	return true, nil
}
