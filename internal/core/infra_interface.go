package core

import (
	"context"
	"io"

	"github.com/markdave123-py/Examcraft/internal/models"
)

// QuestionFilter restricts listings and searches inside one collection.
// An empty Categories slice means no category restriction.
type QuestionFilter struct {
	OwnerID    string
	Categories []models.CategoryTag
}

// VectorBackend is the persistence surface behind the candidate store.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type VectorBackend interface {
	EnsureCollection(ctx context.Context, name, ownerID string) error
	UpsertQuestions(ctx context.Context, collection string, questions []models.IndexedQuestion) error
	// SearchQuestions ranks rows embedded with model by similarity to vec.
	SearchQuestions(ctx context.Context, collection string, filter QuestionFilter, vec []float32, model string, limit int) ([]models.IndexedQuestion, error)
	// ListQuestions returns rows in no particular order. limit <= 0 means all.
	ListQuestions(ctx context.Context, collection string, filter QuestionFilter, limit int) ([]models.IndexedQuestion, error)
	// CountQuestions returns 0 for a collection that does not exist.
	CountQuestions(ctx context.Context, collection, ownerID string) (int, error)
	// DeleteQuestions removes every row the owner has in collection.
	DeleteQuestions(ctx context.Context, collection, ownerID string) error
	ListCollections(ctx context.Context) ([]models.Collection, error)
}

// JobStore persists ingestion jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.IngestionJob) error
	// GetJob returns nil, nil when the id is unknown.
	GetJob(ctx context.Context, id string) (*models.IngestionJob, error)
	// LatestJob returns nil, nil when the owner has no jobs.
	LatestJob(ctx context.Context, ownerID string) (*models.IngestionJob, error)
	// UpdateJob writes job only if the stored status still equals from.
	UpdateJob(ctx context.Context, job *models.IngestionJob, from models.JobStatus) (bool, error)
}

// DbClient is the full persistence surface of the service.
type DbClient interface {
	VectorBackend
	JobStore
	Close() error
}

// ObjectClient stages documents in a single bucket. Locations returned by
// PutObject are for the record only; reads go through the key.
type ObjectClient interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) (location string, err error)
	OpenObject(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
}

// SearchProvider returns result URLs for a web search query.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// QuestionBank is the general-purpose question store indexed questions can
// be migrated into.
type QuestionBank interface {
	// Insert reports false when dedupe is set and the question already exists.
	Insert(ctx context.Context, q models.IndexedQuestion, dedupe bool) (bool, error)
	Close() error
}
