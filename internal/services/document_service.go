package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/markdave123-py/Examcraft/internal/core"
)

// DocumentStager keeps uploaded bytes in object storage only while their job
// runs.
type DocumentStager struct {
	storage core.ObjectClient
}

func NewDocumentStager(storage core.ObjectClient) *DocumentStager {
	return &DocumentStager{storage: storage}
}

// Staged identifies a staged upload: Key for reads, Location for the job record.
type Staged struct {
	Key      string
	Location string
}

// Stage uploads data under a key derived from owner, job and filename.
func (s *DocumentStager) Stage(ctx context.Context, ownerID, jobID, filename, contentType string, data []byte) (Staged, error) {
	key := objectKey(ownerID, jobID, filename)
	loc, err := s.storage.PutObject(ctx, key, data, contentType)
	if err != nil {
		return Staged{}, fmt.Errorf("stage %s: %w", key, err)
	}
	return Staged{Key: key, Location: loc}, nil
}

// Load reads a staged document back, refusing bodies above limit bytes.
func (s *DocumentStager) Load(ctx context.Context, key string, limit int64) ([]byte, error) {
	rc, err := s.storage.OpenObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read staged %s: %w", key, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: staged %s", core.ErrPayloadTooLarge, key)
	}
	return data, nil
}

// Discard removes a staged document. Failures are only logged.
func (s *DocumentStager) Discard(ctx context.Context, key string) {
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		log.Printf("DocumentStager: delete %s: %v", key, err)
	}
}

// objectKey creates a consistent key layout.
func objectKey(ownerID, jobID, filename string) string {
	filename = path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	filename = strings.ReplaceAll(filename, " ", "_")
	if filename == "." || filename == "/" || filename == "" {
		filename = "document"
	}
	return path.Join("uploads", ownerID, jobID, filename)
}
