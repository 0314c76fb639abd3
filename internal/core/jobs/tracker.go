package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

// allowed lists the legal status transitions. Done and Error are terminal.
var allowed = map[models.JobStatus][]models.JobStatus{
	models.JobQueued:     {models.JobProcessing, models.JobError},
	models.JobProcessing: {models.JobDone, models.JobError},
}

func canTransition(from, to models.JobStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Tracker owns the lifecycle of ingestion jobs.
type Tracker struct {
	store core.JobStore
	now   func() time.Time
}

func NewTracker(store core.JobStore) *Tracker {
	return &Tracker{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create records a new job in Queued.
func (t *Tracker) Create(ctx context.Context, ownerID, filename string, kind models.JobKind) (*models.IngestionJob, error) {
	now := t.now()
	job := &models.IngestionJob{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Filename:  filename,
		Kind:      kind,
		Status:    models.JobQueued,
		Message:   "Queued for processing",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (t *Tracker) MarkProcessing(ctx context.Context, job *models.IngestionJob) error {
	return t.transition(ctx, job, models.JobProcessing, func(j *models.IngestionJob) {
		j.Message = "Processing"
	})
}

// Complete moves job to Done with its counts. summary is only set for web jobs.
func (t *Tracker) Complete(ctx context.Context, job *models.IngestionJob, extracted, added int, message string, summary *models.WebIngestSummary) error {
	return t.transition(ctx, job, models.JobDone, func(j *models.IngestionJob) {
		j.Extracted = extracted
		j.Added = added
		j.Message = message
		j.WebSummary = summary
	})
}

// CompleteImport moves a question-bank import job to Done with its report.
func (t *Tracker) CompleteImport(ctx context.Context, job *models.IngestionJob, report *models.ImportReport) error {
	return t.transition(ctx, job, models.JobDone, func(j *models.IngestionJob) {
		j.Extracted = report.Imported + report.SkippedDuplicates
		j.Added = report.Imported
		j.Message = fmt.Sprintf("Imported %d questions from %d users", report.Imported, report.UsersProcessed)
		j.ImportReport = report
	})
}

// RecordStaged notes where a job's document is staged. The status is left
// as it is.
func (t *Tracker) RecordStaged(ctx context.Context, job *models.IngestionJob, location string) error {
	next := *job
	next.StagedObject = location
	next.UpdatedAt = t.now()
	return t.save(ctx, job, &next, job.Status)
}

// Fail moves job to Error. Counts already recorded are kept.
func (t *Tracker) Fail(ctx context.Context, job *models.IngestionJob, message string, summary *models.WebIngestSummary) error {
	return t.transition(ctx, job, models.JobError, func(j *models.IngestionJob) {
		j.Message = message
		if summary != nil {
			j.WebSummary = summary
		}
	})
}

// transition applies mutate and writes the job only if its stored status
// still matches job.Status. job is updated in place on success.
func (t *Tracker) transition(ctx context.Context, job *models.IngestionJob, to models.JobStatus, mutate func(*models.IngestionJob)) error {
	from := job.Status
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, from, to)
	}
	next := *job
	mutate(&next)
	next.Status = to
	next.UpdatedAt = t.now()
	return t.save(ctx, job, &next, from)
}

// save writes next if the stored status still equals from, then copies it
// into job.
func (t *Tracker) save(ctx context.Context, job, next *models.IngestionJob, from models.JobStatus) error {
	ok, err := t.store.UpdateJob(ctx, next, from)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: job %s is no longer %s", core.ErrInvalidTransition, job.ID, from)
	}
	*job = *next
	return nil
}

// Get returns core.ErrJobNotFound for unknown ids and for jobs of other owners.
func (t *Tracker) Get(ctx context.Context, ownerID, id string) (*models.IngestionJob, error) {
	job, err := t.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job == nil || job.OwnerID != ownerID {
		return nil, core.ErrJobNotFound
	}
	return job, nil
}

// Latest returns the most recently created job of owner, or nil.
func (t *Tracker) Latest(ctx context.Context, ownerID string) (*models.IngestionJob, error) {
	job, err := t.store.LatestJob(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("latest job: %w", err)
	}
	return job, nil
}
