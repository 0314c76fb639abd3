package vectorstore

import (
	"context"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

var _ core.VectorBackend = (*MemoryBackend)(nil)

// MemoryBackend keeps collections in process memory. It backs STORAGE_MODE=memory
// and the tests.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]models.Collection
	rows        map[string]map[string]models.IndexedQuestion
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]models.Collection),
		rows:        make(map[string]map[string]models.IndexedQuestion),
	}
}

func (m *MemoryBackend) EnsureCollection(_ context.Context, name, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return nil
	}
	m.collections[name] = models.Collection{Name: name, OwnerID: ownerID, CreatedAt: time.Now().UTC()}
	m.rows[name] = make(map[string]models.IndexedQuestion)
	return nil
}

func (m *MemoryBackend) UpsertQuestions(_ context.Context, collection string, questions []models.IndexedQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.rows[collection]
	if !ok {
		rows = make(map[string]models.IndexedQuestion)
		m.rows[collection] = rows
	}
	now := time.Now().UTC()
	for _, q := range questions {
		if prev, exists := rows[q.ID]; exists {
			q.CreatedAt = prev.CreatedAt
		} else {
			q.CreatedAt = now
		}
		q.UpdatedAt = now
		rows[q.ID] = q
	}
	return nil
}

func (m *MemoryBackend) SearchQuestions(_ context.Context, collection string, filter core.QuestionFilter, vec []float32, model string, limit int) ([]models.IndexedQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		q     models.IndexedQuestion
		score float64
	}
	var hits []scored
	for _, q := range m.rows[collection] {
		if q.EmbeddingModel != model || !matches(q, filter) {
			continue
		}
		hits = append(hits, scored{q: q, score: cosine(vec, q.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]models.IndexedQuestion, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.q)
	}
	return out, nil
}

func (m *MemoryBackend) ListQuestions(_ context.Context, collection string, filter core.QuestionFilter, limit int) ([]models.IndexedQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.IndexedQuestion
	for _, q := range m.rows[collection] {
		if !matches(q, filter) {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryBackend) CountQuestions(_ context.Context, collection, ownerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, q := range m.rows[collection] {
		if q.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryBackend) DeleteQuestions(_ context.Context, collection, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, q := range m.rows[collection] {
		if q.OwnerID == ownerID {
			delete(m.rows[collection], id)
		}
	}
	return nil
}

func (m *MemoryBackend) ListCollections(_ context.Context) ([]models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Collection, 0, len(m.collections))
	for _, c := range m.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matches(q models.IndexedQuestion, f core.QuestionFilter) bool {
	if f.OwnerID != "" && q.OwnerID != f.OwnerID {
		return false
	}
	return len(f.Categories) == 0 || slices.Contains(f.Categories, q.Category)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
