package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/Examcraft/internal/models"
)

// IngestConfig tunes the pipeline.
//
// MaxUnits:         page cap handed to the extractor (MAX_PDF_PAGES).
// ParseConcurrency: how many sections are parsed at once.
type IngestConfig struct {
	MaxUnits         int
	ParseConcurrency int
}

// QuestionIndexer is the write side of the candidate store.
type QuestionIndexer interface {
	Upsert(ctx context.Context, ownerID string, candidates []models.CandidateQuestion, source string) (int, error)
}
