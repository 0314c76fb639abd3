package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/core/jobs"
	vectorstore "github.com/markdave123-py/Examcraft/internal/core/vector-store"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const maxReportedErrors = 50

// BankService migrates indexed questions into the shared question bank.
type BankService struct {
	store   *vectorstore.Store
	bank    core.QuestionBank
	tracker *jobs.Tracker

	wg sync.WaitGroup
}

// NewBankService accepts a nil bank; imports then report core.ErrBankUnavailable.
func NewBankService(store *vectorstore.Store, bank core.QuestionBank, tracker *jobs.Tracker) *BankService {
	return &BankService{store: store, bank: bank, tracker: tracker}
}

func importLabel(ownerID string) string {
	if ownerID == "" {
		return "import: all users"
	}
	return "import: " + ownerID
}

// SubmitImport records an import job owned by requester and runs Import in
// the background. Progress is read through the job tracker.
func (s *BankService) SubmitImport(ctx context.Context, requester, ownerID string, dedupe bool) (*models.IngestionJob, error) {
	if s.bank == nil {
		return nil, core.ErrBankUnavailable
	}
	job, err := s.tracker.Create(ctx, requester, importLabel(ownerID), models.JobKindImport)
	if err != nil {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	running := *job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runImport(bg, &running, ownerID, dedupe)
	}()
	return job, nil
}

func (s *BankService) runImport(ctx context.Context, job *models.IngestionJob, ownerID string, dedupe bool) {
	if err := s.tracker.MarkProcessing(ctx, job); err != nil {
		log.Printf("BankService: job %s: %v", job.ID, err)
		return
	}
	report, err := s.Import(ctx, ownerID, dedupe)
	if err != nil {
		log.Printf("BankService: import job %s failed: %v", job.ID, err)
		job.ImportReport = report
		err = s.tracker.Fail(ctx, job, "Import failed: "+err.Error(), nil)
	} else {
		err = s.tracker.CompleteImport(ctx, job, report)
	}
	if err != nil {
		log.Printf("BankService: record outcome of job %s: %v", job.ID, err)
	}
}

// Shutdown waits for running imports to finish or ctx to end.
func (s *BankService) Shutdown(ctx context.Context) error {
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

// Import copies the questions of ownerID, or of every owner when ownerID is
// empty. Per-question failures are collected in the report.
func (s *BankService) Import(ctx context.Context, ownerID string, dedupe bool) (*models.ImportReport, error) {
	if s.bank == nil {
		return nil, core.ErrBankUnavailable
	}

	owners := []string{ownerID}
	if ownerID == "" {
		cols, err := s.store.Collections(ctx)
		if err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		owners = owners[:0]
		for _, c := range cols {
			owners = append(owners, c.OwnerID)
		}
	}

	report := &models.ImportReport{Errors: []string{}}
	addErr := func(format string, args ...any) {
		if len(report.Errors) < maxReportedErrors {
			report.Errors = append(report.Errors, fmt.Sprintf(format, args...))
		}
	}

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		questions, err := s.store.All(ctx, owner)
		if err != nil {
			addErr("owner %s: %v", owner, err)
			continue
		}
		report.UsersProcessed++
		for _, q := range questions {
			inserted, err := s.bank.Insert(ctx, q, dedupe)
			switch {
			case err != nil:
				addErr("question %s: %v", q.ID, err)
			case inserted:
				report.Imported++
			default:
				report.SkippedDuplicates++
			}
		}
	}

	log.Printf("BankService: imported %d questions from %d owners (%d duplicates, %d errors)",
		report.Imported, report.UsersProcessed, report.SkippedDuplicates, len(report.Errors))
	return report, nil
}
