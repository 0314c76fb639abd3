package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/markdave123-py/Examcraft/internal/models"
)

const jobColumns = `id, owner_id, filename, kind, status, extracted, added, message, web_summary,
	staged_object, import_report, created_at, updated_at`

// encodeJSONB renders v for a nullable JSONB column.
func encodeJSONB[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeJSONB[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

func encodeJobDetails(job *models.IngestionJob) (summary, report any, err error) {
	if summary, err = encodeJSONB(job.WebSummary); err != nil {
		return nil, nil, fmt.Errorf("encode web summary: %w", err)
	}
	if report, err = encodeJSONB(job.ImportReport); err != nil {
		return nil, nil, fmt.Errorf("encode import report: %w", err)
	}
	return summary, report, nil
}

func (c *DatabaseClient) CreateJob(ctx context.Context, job *models.IngestionJob) error {
	if job == nil {
		return errors.New("nil job")
	}
	summary, report, err := encodeJobDetails(job)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO ingestion_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = c.db.ExecContext(ctx, q,
		job.ID, job.OwnerID, job.Filename, string(job.Kind), string(job.Status),
		job.Extracted, job.Added, job.Message, summary, job.StagedObject, report,
		job.CreatedAt, job.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetJob(ctx context.Context, id string) (*models.IngestionJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id = $1`
	return c.scanJob(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) LatestJob(ctx context.Context, ownerID string) (*models.IngestionJob, error) {
	const q = `
		SELECT ` + jobColumns + ` FROM ingestion_jobs
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return c.scanJob(c.db.QueryRowContext(ctx, q, ownerID))
}

func (c *DatabaseClient) scanJob(row *sql.Row) (*models.IngestionJob, error) {
	var (
		j       models.IngestionJob
		kind    string
		status  string
		summary []byte
		report  []byte
	)
	err := row.Scan(&j.ID, &j.OwnerID, &j.Filename, &kind, &status,
		&j.Extracted, &j.Added, &j.Message, &summary, &j.StagedObject, &report,
		&j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.Kind = models.JobKind(kind)
	j.Status = models.JobStatus(status)
	if j.WebSummary, err = decodeJSONB[models.WebIngestSummary](summary); err != nil {
		return nil, fmt.Errorf("decode web summary of %s: %w", j.ID, err)
	}
	if j.ImportReport, err = decodeJSONB[models.ImportReport](report); err != nil {
		return nil, fmt.Errorf("decode import report of %s: %w", j.ID, err)
	}
	return &j, nil
}

// UpdateJob is a compare-and-set on status so two writers cannot both move a
// job out of the same state.
func (c *DatabaseClient) UpdateJob(ctx context.Context, job *models.IngestionJob, from models.JobStatus) (bool, error) {
	summary, report, err := encodeJobDetails(job)
	if err != nil {
		return false, err
	}
	const q = `
		UPDATE ingestion_jobs
		SET status = $3, extracted = $4, added = $5, message = $6, web_summary = $7,
		    staged_object = $8, import_report = $9, updated_at = $10
		WHERE id = $1 AND status = $2
	`
	res, err := c.db.ExecContext(ctx, q, job.ID, string(from), string(job.Status),
		job.Extracted, job.Added, job.Message, summary, job.StagedObject, report, job.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}
