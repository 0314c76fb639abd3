package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/core/jobs"
	vectorstore "github.com/markdave123-py/Examcraft/internal/core/vector-store"
	"github.com/markdave123-py/Examcraft/internal/models"
)

type memoryBank struct {
	mu   sync.Mutex
	docs map[string]models.IndexedQuestion
	fail string
}

func (b *memoryBank) Insert(_ context.Context, q models.IndexedQuestion, dedupe bool) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q.Question == b.fail {
		return false, errors.New("write rejected")
	}
	key := q.ID
	if dedupe {
		key = vectorstore.NormalizeQuestion(q.Question) + "|" + string(q.Category)
		if _, ok := b.docs[key]; ok {
			return false, nil
		}
	}
	b.docs[key] = q
	return true, nil
}

func (b *memoryBank) Close() error { return nil }

func seedStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	store := vectorstore.NewStore(vectorstore.NewMemoryBackend(), nil, vectorstore.NewHashEmbedder(32), 10)
	shared := models.CandidateQuestion{Question: "Capital of India?", Options: [4]string{"a", "b", "c", "d"}, Category: models.CategoryGK}
	only := models.CandidateQuestion{Question: "Largest planet?", Options: [4]string{"a", "b", "c", "d"}, Category: models.CategoryGK}
	if _, err := store.Upsert(context.Background(), "u1", []models.CandidateQuestion{shared, only}, "p1.pdf"); err != nil {
		t.Fatalf("seed u1: %v", err)
	}
	if _, err := store.Upsert(context.Background(), "u2", []models.CandidateQuestion{shared}, "p2.pdf"); err != nil {
		t.Fatalf("seed u2: %v", err)
	}
	return store
}

func newBankService(t *testing.T, bank core.QuestionBank) (*BankService, *jobs.Tracker) {
	t.Helper()
	tracker := jobs.NewTracker(jobs.NewMemoryStore())
	return NewBankService(seedStore(t), bank, tracker), tracker
}

func TestImportWithoutBank(t *testing.T) {
	svc, _ := newBankService(t, nil)
	if _, err := svc.Import(context.Background(), "", true); !errors.Is(err, core.ErrBankUnavailable) {
		t.Fatalf("expected ErrBankUnavailable, got %v", err)
	}
}

func TestImportAllOwnersDedupes(t *testing.T) {
	bank := &memoryBank{docs: map[string]models.IndexedQuestion{}}
	svc, _ := newBankService(t, bank)

	report, err := svc.Import(context.Background(), "", true)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.UsersProcessed != 2 || report.Imported != 2 || report.SkippedDuplicates != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestImportSingleOwnerWithoutDedupe(t *testing.T) {
	bank := &memoryBank{docs: map[string]models.IndexedQuestion{}}
	svc, _ := newBankService(t, bank)

	if _, err := svc.Import(context.Background(), "u1", false); err != nil {
		t.Fatalf("import: %v", err)
	}
	report, err := svc.Import(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.UsersProcessed != 1 || report.Imported != 2 || report.SkippedDuplicates != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestImportCollectsErrors(t *testing.T) {
	bank := &memoryBank{docs: map[string]models.IndexedQuestion{}, fail: "Largest planet?"}
	svc, _ := newBankService(t, bank)

	report, err := svc.Import(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 1 || len(report.Errors) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSubmitImportRunsAsJob(t *testing.T) {
	ctx := context.Background()
	bank := &memoryBank{docs: map[string]models.IndexedQuestion{}}
	svc, tracker := newBankService(t, bank)

	job, err := svc.SubmitImport(ctx, "admin", "", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Kind != models.JobKindImport || job.Status != models.JobQueued {
		t.Fatalf("unexpected job %+v", job)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(waitCtx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	got, err := tracker.Get(ctx, "admin", job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.JobDone || got.ImportReport == nil || got.ImportReport.Imported != 2 || got.Added != 2 {
		t.Fatalf("unexpected finished job %+v", got)
	}
}

func TestSubmitImportWithoutBankCreatesNoJob(t *testing.T) {
	svc, tracker := newBankService(t, nil)
	if _, err := svc.SubmitImport(context.Background(), "admin", "", true); !errors.Is(err, core.ErrBankUnavailable) {
		t.Fatalf("expected ErrBankUnavailable, got %v", err)
	}
	if job, _ := tracker.Latest(context.Background(), "admin"); job != nil {
		t.Fatalf("expected no job, got %+v", job)
	}
}
