package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/core/ingestion_engine"
	"github.com/markdave123-py/Examcraft/internal/core/jobs"
	objectclient "github.com/markdave123-py/Examcraft/internal/core/object-client"
	vectorstore "github.com/markdave123-py/Examcraft/internal/core/vector-store"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const paper = `Section : General Knowledge
Q.1 Capital of India?
✓ 1. Delhi
2. Mumbai
3. Chennai
4. Kolkata
Q.2 Which river is the longest in India?
1. Yamuna
✓ 2. Ganga
3. Godavari
4. Narmada`

type blockingIngestor struct{}

func (blockingIngestor) Run(ctx context.Context, _ models.IngestRequest) (*models.IngestResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type stubWeb struct {
	summary *models.WebIngestSummary
	got     models.WebIngestRequest
}

func (s *stubWeb) Ingest(_ context.Context, _ string, req models.WebIngestRequest) *models.WebIngestSummary {
	s.got = req
	return s.summary
}

type fixture struct {
	svc     *IngestService
	tracker *jobs.Tracker
	objects *objectclient.MemoryStager
	store   *vectorstore.Store
}

func newFixture(t *testing.T, runner ingestion_engine.Ingestor, timeout time.Duration, web WebIngester) *fixture {
	t.Helper()
	store := vectorstore.NewStore(vectorstore.NewMemoryBackend(), nil, vectorstore.NewHashEmbedder(32), 10)
	if runner == nil {
		extractor := ingestion_engine.NewRoutingExtractor(ingestion_engine.NewPDFExtractor(), ingestion_engine.NewDocconvExtractor(false))
		runner = ingestion_engine.NewPipeline(extractor, store, &ingestion_engine.IngestConfig{MaxUnits: 50})
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := ingestion_engine.NewWorkerPool(8)
	pool.Start(ctx, 2)
	t.Cleanup(func() {
		pool.Close()
		cancel()
	})

	tracker := jobs.NewTracker(jobs.NewMemoryStore())
	objects := objectclient.NewMemoryStager("test-bucket")
	svc := NewIngestService(
		tracker,
		NewDocumentStager(objects),
		ingestion_engine.NewScheduler(pool, runner, timeout),
		web,
		20<<20,
		time.Second,
	)
	return &fixture{svc: svc, tracker: tracker, objects: objects, store: store}
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.svc.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSubmitUploadRejectsOversizeWithoutJob(t *testing.T) {
	f := newFixture(t, nil, time.Second, nil)

	_, err := f.svc.SubmitUpload(context.Background(), UploadRequest{
		OwnerID:  "u1",
		Filename: "huge.pdf",
		Data:     make([]byte, 21<<20),
	})
	if !errors.Is(err, core.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if job, _ := f.tracker.Latest(context.Background(), "u1"); job != nil {
		t.Fatalf("no job should exist, got %+v", job)
	}
}

func TestSubmitUploadRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t, nil, time.Second, nil)

	_, err := f.svc.SubmitUpload(context.Background(), UploadRequest{
		OwnerID:     "u1",
		Filename:    "photo.png",
		ContentType: "image/png",
		Data:        []byte("png"),
	})
	if !errors.Is(err, core.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestSubmitUploadCompletes(t *testing.T) {
	f := newFixture(t, nil, 5*time.Second, nil)
	ctx := context.Background()

	job, err := f.svc.SubmitUpload(ctx, UploadRequest{
		OwnerID:     "u1",
		Filename:    "cgl 2019.txt",
		ContentType: "text/plain",
		Data:        []byte(paper),
		Difficulty:  models.DifficultyHard,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != models.JobQueued {
		t.Fatalf("expected queued job, got %s", job.Status)
	}
	f.wait(t)

	got, err := f.tracker.Get(ctx, "u1", job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.JobDone || got.Added != 2 || got.Extracted != 2 {
		t.Fatalf("unexpected job %+v", got)
	}
	if f.objects.Len() != 0 {
		t.Fatalf("staged document should be discarded, %d left", f.objects.Len())
	}
	if want := "mem://test-bucket/uploads/u1/" + job.ID + "/cgl_2019.txt"; got.StagedObject != want {
		t.Fatalf("staged object = %q, want %q", got.StagedObject, want)
	}

	qs, err := f.store.All(ctx, "u1")
	if err != nil || len(qs) != 2 {
		t.Fatalf("expected 2 stored questions, got %d (%v)", len(qs), err)
	}
	if qs[0].Difficulty != models.DifficultyHard {
		t.Fatalf("difficulty not applied: %s", qs[0].Difficulty)
	}
}

func TestSubmitUploadWithoutTextFails(t *testing.T) {
	f := newFixture(t, nil, 5*time.Second, nil)

	job, err := f.svc.SubmitUpload(context.Background(), UploadRequest{
		OwnerID:  "u1",
		Filename: "blank.txt",
		Data:     []byte("   \n  "),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.wait(t)

	got, _ := f.tracker.Get(context.Background(), "u1", job.ID)
	if got.Status != models.JobError || got.Message != msgNoText {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestSubmitUploadTimeout(t *testing.T) {
	f := newFixture(t, blockingIngestor{}, 50*time.Millisecond, nil)

	job, err := f.svc.SubmitUpload(context.Background(), UploadRequest{
		OwnerID:  "u1",
		Filename: "slow.txt",
		Data:     []byte(paper),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.wait(t)

	got, _ := f.tracker.Get(context.Background(), "u1", job.ID)
	if got.Status != models.JobError {
		t.Fatalf("expected error status, got %s", got.Status)
	}
	if got.Message != "Processing timed out after 50ms" {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestSubmitUploadSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t, nil, 5*time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())

	job, err := f.svc.SubmitUpload(ctx, UploadRequest{OwnerID: "u1", Filename: "p.txt", Data: []byte(paper)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	cancel()
	f.wait(t)

	got, _ := f.tracker.Get(context.Background(), "u1", job.ID)
	if got.Status != models.JobDone {
		t.Fatalf("expected done, got %+v", got)
	}
}

func TestSubmitWebCompletes(t *testing.T) {
	web := &stubWeb{summary: &models.WebIngestSummary{
		Success: true, TotalURLs: 2, Processed: 1, Failed: 1, QuestionsAdded: 7,
		Results: []models.LinkResult{{URL: "https://a.com/x.pdf", Status: models.LinkSuccess, Questions: 7}},
		Message: "Processed 1 of 2 documents, added 7 questions",
	}}
	f := newFixture(t, nil, time.Second, web)

	job, err := f.svc.SubmitWeb(context.Background(), "u1", models.WebIngestRequest{
		Queries:       []string{" ssc cgl ", ""},
		LimitPerQuery: 50,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Kind != models.JobKindWeb {
		t.Fatalf("unexpected kind %s", job.Kind)
	}
	f.wait(t)

	if len(web.got.Queries) != 1 || web.got.Queries[0] != "ssc cgl" || web.got.LimitPerQuery != maxLimitPerQuery {
		t.Fatalf("request not normalized: %+v", web.got)
	}
	got, _ := f.tracker.Get(context.Background(), "u1", job.ID)
	if got.Status != models.JobDone || got.Added != 7 || got.WebSummary == nil || got.WebSummary.Failed != 1 {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestSubmitWebAllFailed(t *testing.T) {
	web := &stubWeb{summary: &models.WebIngestSummary{TotalURLs: 1, Failed: 1, Message: "Processed 0 of 1 documents, added 0 questions"}}
	f := newFixture(t, nil, time.Second, web)

	job, err := f.svc.SubmitWeb(context.Background(), "u1", models.WebIngestRequest{URLs: []string{"https://a.com/x.pdf"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.wait(t)

	got, _ := f.tracker.Get(context.Background(), "u1", job.ID)
	if got.Status != models.JobError || got.WebSummary == nil {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestSubmitWebRejectsBadURL(t *testing.T) {
	f := newFixture(t, nil, time.Second, &stubWeb{})

	for _, req := range []models.WebIngestRequest{
		{URLs: []string{"ftp://a.com/x.pdf"}},
		{URLs: []string{"not a url"}},
		{ScrapePages: true},
	} {
		if _, err := f.svc.SubmitWeb(context.Background(), "u1", req); !errors.Is(err, core.ErrInvalidRequest) {
			t.Errorf("%+v: expected ErrInvalidRequest, got %v", req, err)
		}
	}
}

func TestObjectKey(t *testing.T) {
	cases := map[string]string{
		"paper 2019.pdf":      "uploads/u1/j1/paper_2019.pdf",
		"../../etc/passwd":    "uploads/u1/j1/passwd",
		`C:\docs\gk set.docx`: "uploads/u1/j1/gk_set.docx",
		"":                    "uploads/u1/j1/document",
	}
	for in, want := range cases {
		if got := objectKey("u1", "j1", in); got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}
