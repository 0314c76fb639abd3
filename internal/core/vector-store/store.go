package vectorstore

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const (
	defaultBatchSize = 10
	defaultQueryText = "exam questions"
)

// BatchError reports an upsert batch that failed after earlier batches were
// committed. Committed rows are not rolled back.
type BatchError struct {
	Batch     int
	Batches   int
	Committed int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: batch %d/%d failed after %d questions committed: %v",
		core.ErrIndexingFailed, e.Batch, e.Batches, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() []error {
	return []error{core.ErrIndexingFailed, e.Err}
}

// Store is the per-owner candidate store. Every owner gets one collection;
// rows also carry the owner id so queries never cross owners.
type Store struct {
	backend   core.VectorBackend
	primary   core.EmbeddingProvider
	fallback  core.EmbeddingProvider
	batchSize int

	mu      sync.Mutex
	ensured map[string]struct{}
}

// NewStore wires a backend with an optional primary embedder. When primary
// is nil every vector comes from fallback.
func NewStore(backend core.VectorBackend, primary, fallback core.EmbeddingProvider, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{
		backend:   backend,
		primary:   primary,
		fallback:  fallback,
		batchSize: batchSize,
		ensured:   make(map[string]struct{}),
	}
}

func (s *Store) ensureCollection(ctx context.Context, ownerID string) (string, error) {
	name := CollectionName(ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ensured[name]; ok {
		return name, nil
	}
	if err := s.backend.EnsureCollection(ctx, name, ownerID); err != nil {
		return "", fmt.Errorf("ensure collection %s: %w", name, err)
	}
	s.ensured[name] = struct{}{}
	return name, nil
}

// embed never fails because of the primary provider; only a fallback error
// is returned.
func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, string, error) {
	if s.primary != nil {
		vecs, err := s.primary.EmbedTexts(ctx, texts)
		if err == nil && len(vecs) == len(texts) {
			return vecs, s.primary.Model(), nil
		}
		if err == nil {
			err = fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts))
		}
		log.Printf("CandidateStore: embedding via %s failed, using %s: %v", s.primary.Model(), s.fallback.Model(), err)
	}
	vecs, err := s.fallback.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, "", fmt.Errorf("fallback embed: %w", err)
	}
	return vecs, s.fallback.Model(), nil
}

// Upsert indexes candidates for owner and returns the number of distinct
// questions written. Candidates sharing an id collapse to the last one.
func (s *Store) Upsert(ctx context.Context, ownerID string, candidates []models.CandidateQuestion, source string) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}
	collection, err := s.ensureCollection(ctx, ownerID)
	if err != nil {
		return 0, &BatchError{Batch: 1, Batches: 1, Err: err}
	}

	var ids []string
	byID := make(map[string]models.CandidateQuestion, len(candidates))
	for _, c := range candidates {
		id := QuestionID(ownerID, c.Question, c.Category)
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = c
	}

	batches := (len(ids) + s.batchSize - 1) / s.batchSize
	committed := 0
	for b := 0; b < batches; b++ {
		chunk := ids[b*s.batchSize : min((b+1)*s.batchSize, len(ids))]

		texts := make([]string, len(chunk))
		for i, id := range chunk {
			texts[i] = byID[id].Question
		}
		vecs, model, err := s.embed(ctx, texts)
		if err != nil {
			return committed, &BatchError{Batch: b + 1, Batches: batches, Committed: committed, Err: err}
		}

		rows := make([]models.IndexedQuestion, len(chunk))
		for i, id := range chunk {
			rows[i] = models.IndexedQuestion{
				ID:                id,
				OwnerID:           ownerID,
				CandidateQuestion: byID[id],
				Source:            source,
				EmbeddingModel:    model,
				Embedding:         vecs[i],
			}
		}
		if err := s.backend.UpsertQuestions(ctx, collection, rows); err != nil {
			return committed, &BatchError{Batch: b + 1, Batches: batches, Committed: committed, Err: err}
		}
		committed += len(rows)
	}

	log.Printf("CandidateStore: upserted %d questions into %s in %d batches", committed, collection, batches)
	return committed, nil
}

// Query returns at most count questions for owner. Requested categories are
// widened with custom. A failed similarity search falls back to an unranked
// listing under the same filter.
func (s *Store) Query(ctx context.Context, ownerID string, count int, categories []models.CategoryTag, freeText string) ([]models.IndexedQuestion, error) {
	if count <= 0 {
		return nil, nil
	}
	total, err := s.Count(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []models.IndexedQuestion{}, nil
	}
	n := min(count, total)

	collection := CollectionName(ownerID)
	filter := core.QuestionFilter{OwnerID: ownerID, Categories: expandCategories(categories)}

	text := strings.TrimSpace(freeText)
	if text == "" {
		text = defaultQueryText
		if len(categories) > 0 {
			parts := make([]string, len(categories))
			for i, c := range categories {
				parts[i] = string(c)
			}
			text = strings.Join(parts, " ")
		}
	}

	var results []models.IndexedQuestion
	vecs, model, err := s.embed(ctx, []string{text})
	if err == nil {
		results, err = s.backend.SearchQuestions(ctx, collection, filter, vecs[0], model, n)
	}
	if err != nil {
		log.Printf("CandidateStore: similarity query failed for %s, listing instead: %v", collection, err)
		results = nil
	}

	if len(results) < n {
		listed, lerr := s.backend.ListQuestions(ctx, collection, filter, n+len(results))
		if lerr != nil {
			if err != nil {
				return nil, fmt.Errorf("list questions: %w", lerr)
			}
			log.Printf("CandidateStore: listing %s failed: %v", collection, lerr)
		}
		results = mergeUnique(results, listed)
	}

	rand.Shuffle(len(results), func(i, j int) { results[i], results[j] = results[j], results[i] })
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// Count returns the number of questions owner has indexed.
func (s *Store) Count(ctx context.Context, ownerID string) (int, error) {
	n, err := s.backend.CountQuestions(ctx, CollectionName(ownerID), ownerID)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

// Clear removes every indexed question of owner. Failures are logged and
// reported as false.
func (s *Store) Clear(ctx context.Context, ownerID string) bool {
	collection := CollectionName(ownerID)
	if err := s.backend.DeleteQuestions(ctx, collection, ownerID); err != nil {
		log.Printf("CandidateStore: clear %s failed: %v", collection, err)
		return false
	}
	return true
}

// All lists every question of owner, used by the question-bank migration.
func (s *Store) All(ctx context.Context, ownerID string) ([]models.IndexedQuestion, error) {
	return s.backend.ListQuestions(ctx, CollectionName(ownerID), core.QuestionFilter{OwnerID: ownerID}, 0)
}

// Collections lists every owner collection.
func (s *Store) Collections(ctx context.Context) ([]models.Collection, error) {
	return s.backend.ListCollections(ctx)
}

func expandCategories(categories []models.CategoryTag) []models.CategoryTag {
	if len(categories) == 0 {
		return nil
	}
	out := slices.Clone(categories)
	if !slices.Contains(out, models.CategoryCustom) {
		out = append(out, models.CategoryCustom)
	}
	return out
}

func mergeUnique(primary, extra []models.IndexedQuestion) []models.IndexedQuestion {
	seen := make(map[string]struct{}, len(primary))
	for _, q := range primary {
		seen[q.ID] = struct{}{}
	}
	for _, q := range extra {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		primary = append(primary, q)
	}
	return primary
}
