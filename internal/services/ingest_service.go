package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/core/ingestion_engine"
	"github.com/markdave123-py/Examcraft/internal/core/jobs"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const (
	maxLimitPerQuery = 10
	msgNoText        = "Could not extract text from document"
)

// WebIngester runs a whole web-sourcing job.
type WebIngester interface {
	Ingest(ctx context.Context, ownerID string, req models.WebIngestRequest) *models.WebIngestSummary
}

// UploadRequest is one uploaded document awaiting ingestion.
type UploadRequest struct {
	OwnerID          string
	Filename         string
	ContentType      string
	Data             []byte
	Difficulty       models.Difficulty
	CategoryOverride *models.CategoryTag
	SkipCategories   []models.CategoryTag
}

// IngestService accepts uploads and web jobs and runs them in the
// background, recording progress on the job tracker.
type IngestService struct {
	tracker    *jobs.Tracker
	stager     *DocumentStager
	scheduler  *ingestion_engine.Scheduler
	web        WebIngester
	maxUpload  int64
	webTimeout time.Duration

	wg sync.WaitGroup
}

func NewIngestService(tracker *jobs.Tracker, stager *DocumentStager, scheduler *ingestion_engine.Scheduler, web WebIngester, maxUpload int64, webTimeout time.Duration) *IngestService {
	return &IngestService{
		tracker:    tracker,
		stager:     stager,
		scheduler:  scheduler,
		web:        web,
		maxUpload:  maxUpload,
		webTimeout: webTimeout,
	}
}

// SubmitUpload validates and stages an upload, then processes it in the
// background. Rejected uploads never create a job.
func (s *IngestService) SubmitUpload(ctx context.Context, req UploadRequest) (*models.IngestionJob, error) {
	if int64(len(req.Data)) > s.maxUpload {
		return nil, fmt.Errorf("%w: file exceeds %d MB", core.ErrPayloadTooLarge, s.maxUpload>>20)
	}
	ct := ingestion_engine.ResolveContentType(req.Filename, req.ContentType)
	if !ingestion_engine.SupportedContentType(ct) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, ct)
	}

	job, err := s.tracker.Create(ctx, req.OwnerID, req.Filename, models.JobKindUpload)
	if err != nil {
		return nil, err
	}

	staged, err := s.stager.Stage(ctx, req.OwnerID, job.ID, req.Filename, ct, req.Data)
	if err != nil {
		if ferr := s.tracker.Fail(ctx, job, "Could not store the uploaded document", nil); ferr != nil {
			log.Printf("IngestService: fail job %s: %v", job.ID, ferr)
		}
		return nil, err
	}
	if err := s.tracker.RecordStaged(ctx, job, staged.Location); err != nil {
		log.Printf("IngestService: job %s: %v", job.ID, err)
	}

	req.ContentType = ct
	bg := context.WithoutCancel(ctx)
	running := *job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processUpload(bg, &running, staged.Key, req)
	}()

	log.Printf("IngestService: queued %s (%d bytes) as job %s", req.Filename, len(req.Data), job.ID)
	return job, nil
}

func (s *IngestService) processUpload(ctx context.Context, job *models.IngestionJob, key string, req UploadRequest) {
	defer s.stager.Discard(ctx, key)

	if err := s.tracker.MarkProcessing(ctx, job); err != nil {
		log.Printf("IngestService: job %s: %v", job.ID, err)
		return
	}

	data, err := s.stager.Load(ctx, key, s.maxUpload)
	if err != nil {
		log.Printf("IngestService: job %s: %v", job.ID, err)
		s.finish(job, s.tracker.Fail(ctx, job, "Could not read the uploaded document", nil))
		return
	}

	res, err := s.scheduler.Run(ctx, models.IngestRequest{
		OwnerID:          req.OwnerID,
		Filename:         req.Filename,
		ContentType:      req.ContentType,
		Data:             data,
		Difficulty:       req.Difficulty,
		CategoryOverride: req.CategoryOverride,
		SkipCategories:   req.SkipCategories,
	})

	switch {
	case errors.Is(err, core.ErrJobTimeout):
		msg := fmt.Sprintf("Processing timed out after %s", s.scheduler.Timeout())
		s.finish(job, s.tracker.Fail(ctx, job, msg, nil))
	case errors.Is(err, core.ErrExtractionFailed):
		log.Printf("IngestService: job %s: %v", job.ID, err)
		s.finish(job, s.tracker.Fail(ctx, job, msgNoText, nil))
	case err != nil:
		log.Printf("IngestService: job %s failed: %v", job.ID, err)
		s.finish(job, s.tracker.Fail(ctx, job, err.Error(), nil))
	case !res.Success:
		job.Extracted = res.Extracted
		s.finish(job, s.tracker.Fail(ctx, job, res.Message, nil))
	default:
		s.finish(job, s.tracker.Complete(ctx, job, res.Extracted, res.Added, res.Message, nil))
	}
}

func (s *IngestService) finish(job *models.IngestionJob, err error) {
	if err != nil {
		log.Printf("IngestService: record outcome of job %s: %v", job.ID, err)
		return
	}
	log.Printf("IngestService: job %s %s: %s", job.ID, job.Status, job.Message)
}

// normalizeWebRequest checks URLs and clamps the per-query limit.
func normalizeWebRequest(req models.WebIngestRequest) (models.WebIngestRequest, error) {
	var queries []string
	for _, q := range req.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	req.Queries = queries

	for _, raw := range req.URLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return req, fmt.Errorf("%w: %q is not an http(s) url", core.ErrInvalidRequest, raw)
		}
	}
	if req.ScrapePages && len(req.URLs) == 0 {
		return req, fmt.Errorf("%w: scrape_pages needs urls", core.ErrInvalidRequest)
	}

	if req.LimitPerQuery <= 0 || req.LimitPerQuery > maxLimitPerQuery {
		req.LimitPerQuery = maxLimitPerQuery
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyMedium
	}
	return req, nil
}

func webJobLabel(req models.WebIngestRequest) string {
	switch {
	case len(req.URLs) > 0 && req.ScrapePages:
		return fmt.Sprintf("web: %d pages", len(req.URLs))
	case len(req.URLs) > 0:
		return fmt.Sprintf("web: %d urls", len(req.URLs))
	case len(req.Queries) > 0:
		return fmt.Sprintf("web: %d queries", len(req.Queries))
	default:
		return "web: default queries"
	}
}

// SubmitWeb creates a web job and runs it in the background under the web
// job timeout.
func (s *IngestService) SubmitWeb(ctx context.Context, ownerID string, req models.WebIngestRequest) (*models.IngestionJob, error) {
	req, err := normalizeWebRequest(req)
	if err != nil {
		return nil, err
	}
	job, err := s.tracker.Create(ctx, ownerID, webJobLabel(req), models.JobKindWeb)
	if err != nil {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	running := *job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processWeb(bg, &running, req)
	}()
	return job, nil
}

func (s *IngestService) processWeb(ctx context.Context, job *models.IngestionJob, req models.WebIngestRequest) {
	if err := s.tracker.MarkProcessing(ctx, job); err != nil {
		log.Printf("IngestService: job %s: %v", job.ID, err)
		return
	}

	runCtx := ctx
	if s.webTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.webTimeout)
		defer cancel()
	}
	summary := s.web.Ingest(runCtx, job.OwnerID, req)

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		msg := fmt.Sprintf("Web ingestion timed out after %s", s.webTimeout)
		job.Added = summary.QuestionsAdded
		s.finish(job, s.tracker.Fail(ctx, job, msg, summary))
	case summary.Processed == 0 && summary.Failed > 0:
		s.finish(job, s.tracker.Fail(ctx, job, summary.Message, summary))
	default:
		s.finish(job, s.tracker.Complete(ctx, job, summary.QuestionsAdded, summary.QuestionsAdded, summary.Message, summary))
	}
}

// Shutdown waits for background jobs to finish or ctx to end.
func (s *IngestService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
