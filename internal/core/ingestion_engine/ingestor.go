package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/Examcraft/internal/models"
)

// Ingestor runs one document through extraction, parsing and indexing.
// Pipeline runs inline; Scheduler runs on the worker pool under a timeout.
type Ingestor interface {
	Run(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error)
}

var (
	_ Ingestor = (*Pipeline)(nil)
	_ Ingestor = (*Scheduler)(nil)
)
