package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

// flakyBackend fails selected calls and otherwise delegates to memory.
type flakyBackend struct {
	*MemoryBackend
	upserts      int
	failUpsertAt int
	failSearch   bool
	failDelete   bool
}

func (f *flakyBackend) UpsertQuestions(ctx context.Context, collection string, qs []models.IndexedQuestion) error {
	f.upserts++
	if f.upserts == f.failUpsertAt {
		return errors.New("connection reset")
	}
	return f.MemoryBackend.UpsertQuestions(ctx, collection, qs)
}

func (f *flakyBackend) SearchQuestions(ctx context.Context, collection string, filter core.QuestionFilter, vec []float32, model string, limit int) ([]models.IndexedQuestion, error) {
	if f.failSearch {
		return nil, errors.New("index unavailable")
	}
	return f.MemoryBackend.SearchQuestions(ctx, collection, filter, vec, model, limit)
}

func (f *flakyBackend) DeleteQuestions(ctx context.Context, collection, ownerID string) error {
	if f.failDelete {
		return errors.New("permission denied")
	}
	return f.MemoryBackend.DeleteQuestions(ctx, collection, ownerID)
}

type brokenEmbedder struct{}

func (brokenEmbedder) Model() string { return "remote-model" }
func (brokenEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func candidates(n int, category models.CategoryTag) []models.CandidateQuestion {
	out := make([]models.CandidateQuestion, n)
	for i := range out {
		out[i] = models.CandidateQuestion{
			Question:   fmt.Sprintf("Question number %d about %s?", i, category),
			Options:    [4]string{"a", "b", "c", "d"},
			Category:   category,
			Difficulty: models.DifficultyMedium,
		}
	}
	return out
}

func newTestStore(backend core.VectorBackend) *Store {
	return NewStore(backend, nil, NewHashEmbedder(64), 10)
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryBackend())

	cands := candidates(12, models.CategoryGK)
	added, err := s.Upsert(ctx, "owner-1", cands, "paper.pdf")
	if err != nil || added != 12 {
		t.Fatalf("first upsert = %d, %v", added, err)
	}
	if _, err := s.Upsert(ctx, "owner-1", cands, "paper.pdf"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	n, err := s.Count(ctx, "owner-1")
	if err != nil || n != 12 {
		t.Fatalf("count = %d, %v; want 12", n, err)
	}
}

func TestUpsertCollapsesDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryBackend())

	first := candidates(1, models.CategoryGK)[0]
	second := first
	second.Question = "  " + strings.ToUpper(first.Question) + " "
	second.Options[0] = "changed"

	added, err := s.Upsert(ctx, "o", []models.CandidateQuestion{first, second}, "")
	if err != nil || added != 1 {
		t.Fatalf("upsert = %d, %v; want 1", added, err)
	}
	all, _ := s.All(ctx, "o")
	if len(all) != 1 || all[0].Options[0] != "changed" {
		t.Fatalf("expected last write to win, got %+v", all)
	}
}

func TestUpsertBatchFailureKeepsCommittedBatches(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend(), failUpsertAt: 2}
	s := newTestStore(backend)

	added, err := s.Upsert(ctx, "o", candidates(25, models.CategoryEnglish), "")
	if !errors.Is(err, core.ErrIndexingFailed) {
		t.Fatalf("expected indexing failure, got %v", err)
	}
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BatchError, got %T", err)
	}
	if be.Batch != 2 || be.Batches != 3 || be.Committed != 10 || added != 10 {
		t.Fatalf("unexpected batch error %+v (added %d)", be, added)
	}
	if n, _ := s.Count(ctx, "o"); n != 10 {
		t.Fatalf("expected 10 committed rows to remain, got %d", n)
	}
}

func TestPrimaryEmbedderFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	fallback := NewHashEmbedder(32)
	s := NewStore(backend, brokenEmbedder{}, fallback, 10)

	if _, err := s.Upsert(ctx, "o", candidates(3, models.CategoryGK), ""); err != nil {
		t.Fatalf("upsert should not fail when the primary embedder is down: %v", err)
	}
	all, _ := s.All(ctx, "o")
	for _, q := range all {
		if q.EmbeddingModel != fallback.Model() || len(q.Embedding) != 32 {
			t.Fatalf("expected fallback embedding, got model %q dim %d", q.EmbeddingModel, len(q.Embedding))
		}
	}
}

func TestQueryNeverExceedsCountOrTotal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryBackend())
	if _, err := s.Upsert(ctx, "o", candidates(25, models.CategoryReasoning), ""); err != nil {
		t.Fatal(err)
	}

	got, err := s.Query(ctx, "o", 5, nil, "")
	if err != nil || len(got) != 5 {
		t.Fatalf("query(5) = %d, %v", len(got), err)
	}
	got, err = s.Query(ctx, "o", 100, nil, "question")
	if err != nil || len(got) != 25 {
		t.Fatalf("query(100) = %d, %v", len(got), err)
	}
	got, err = s.Query(ctx, "nobody", 10, nil, "")
	if err != nil || len(got) != 0 {
		t.Fatalf("query on empty owner = %d, %v", len(got), err)
	}
}

func TestQueryCategoriesIncludeCustom(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryBackend())
	var all []models.CandidateQuestion
	all = append(all, candidates(3, models.CategoryGK)...)
	all = append(all, candidates(3, models.CategoryCustom)...)
	all = append(all, candidates(3, models.CategoryEnglish)...)
	if _, err := s.Upsert(ctx, "o", all, ""); err != nil {
		t.Fatal(err)
	}

	got, err := s.Query(ctx, "o", 50, []models.CategoryTag{models.CategoryGK}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Fatalf("expected gk + custom questions, got %d", len(got))
	}
	for _, q := range got {
		if q.Category == models.CategoryEnglish {
			t.Fatalf("english question leaked into gk query: %q", q.Question)
		}
	}
}

func TestQueryFallsBackToListing(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend(), failSearch: true}
	s := newTestStore(backend)
	if _, err := s.Upsert(ctx, "o", candidates(4, models.CategoryGK), ""); err != nil {
		t.Fatal(err)
	}
	got, err := s.Query(ctx, "o", 3, nil, "anything")
	if err != nil || len(got) != 3 {
		t.Fatalf("expected listing fallback to return 3, got %d, %v", len(got), err)
	}
}

func TestQueryIsolatesOwners(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryBackend())
	// both ids normalise to the same collection name
	if _, err := s.Upsert(ctx, "a-b", candidates(2, models.CategoryGK), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(ctx, "a_b", candidates(3, models.CategoryGK), ""); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx, "a-b"); n != 2 {
		t.Fatalf("expected 2 questions for a-b, got %d", n)
	}
	got, _ := s.Query(ctx, "a-b", 10, nil, "")
	for _, q := range got {
		if q.OwnerID != "a-b" {
			t.Fatalf("query returned a row owned by %q", q.OwnerID)
		}
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend()}
	s := newTestStore(backend)
	if _, err := s.Upsert(ctx, "o", candidates(2, models.CategoryGK), ""); err != nil {
		t.Fatal(err)
	}
	if !s.Clear(ctx, "o") {
		t.Fatal("expected clear to succeed")
	}
	if n, _ := s.Count(ctx, "o"); n != 0 {
		t.Fatalf("expected empty collection, got %d", n)
	}
	backend.failDelete = true
	if s.Clear(ctx, "o") {
		t.Fatal("expected clear failure to be reported as false")
	}
}

func TestCollectionName(t *testing.T) {
	if got := CollectionName("abc-123"); got != "user_abc_123_questions" {
		t.Fatalf("unexpected name %q", got)
	}
	long := CollectionName(strings.Repeat("x", 100))
	if len(long) != 63 || !strings.HasPrefix(long, "user_x") {
		t.Fatalf("expected capped name, got %q (%d)", long, len(long))
	}
	if got := CollectionName("a.b@c"); got != "user_a_b_c_questions" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestQuestionID(t *testing.T) {
	a := QuestionID("u1", "What is  the capital?", models.CategoryGK)
	b := QuestionID("u1", "what is the CAPITAL?", models.CategoryGK)
	if a != b {
		t.Fatal("expected normalisation to produce the same id")
	}
	if a == QuestionID("u2", "what is the capital?", models.CategoryGK) {
		t.Fatal("owner must be part of the id")
	}
	if a == QuestionID("u1", "what is the capital?", models.CategoryCustom) {
		t.Fatal("category must be part of the id")
	}
	// field boundaries are length-prefixed
	if QuestionID("ab", "c", "") == QuestionID("a", "bc", "") {
		t.Fatal("distinct tuples produced the same id")
	}
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(128)
	vecs, err := e.EmbedTexts(context.Background(), []string{"Capital of India", "capital of india", ""})
	if err != nil {
		t.Fatal(err)
	}
	if cosine(vecs[0], vecs[1]) < 0.999 {
		t.Fatal("expected case-insensitive deterministic vectors")
	}
	for _, v := range vecs {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm < 0.999 || norm > 1.001 {
			t.Fatalf("expected unit vector, got squared norm %f", norm)
		}
	}
}
