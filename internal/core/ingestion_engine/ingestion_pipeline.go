package ingestion_engine

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/core/mcq"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const msgNoQuestions = "No questions found in document"

// Pipeline orchestrates extract -> segment -> parse -> index for one document.
type Pipeline struct {
	extractor core.TextExtractor
	index     QuestionIndexer
	cfg       *IngestConfig
}

func NewPipeline(extractor core.TextExtractor, index QuestionIndexer, cfg *IngestConfig) *Pipeline {
	if cfg == nil {
		cfg = &IngestConfig{}
	}
	if cfg.ParseConcurrency <= 0 {
		cfg.ParseConcurrency = 4
	}
	return &Pipeline{extractor: extractor, index: index, cfg: cfg}
}

// Run returns an error wrapping core.ErrExtractionFailed when the document
// has no readable text, and one wrapping core.ErrIndexingFailed when the
// store rejects a batch. A document without questions is not an error.
func (p *Pipeline) Run(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	text := p.extractor.Extract(ctx, req.Data, req.ContentType, p.cfg.MaxUnits)
	if text == "" {
		log.Printf("IngestionPipeline: no text extracted from %q for owner %s", req.Filename, req.OwnerID)
		return nil, fmt.Errorf("%q: %w", req.Filename, core.ErrExtractionFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	difficulty, _ := models.ParseDifficulty(string(req.Difficulty))

	sections := mcq.Segment(text)
	var (
		usable  []models.Section
		skipped int
	)
	for _, s := range sections {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if slices.Contains(req.SkipCategories, sectionCategory(s)) {
			skipped++
			continue
		}
		usable = append(usable, s)
	}

	candidates, err := p.parseSections(ctx, usable, req.CategoryOverride, difficulty)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// A heading false positive can split a question across sections.
		// Skipped sections stay excluded from the retry.
		whole := text
		if skipped > 0 {
			whole = joinSections(usable)
		}
		if whole != "" {
			log.Printf("IngestionPipeline: sections of %q gave no questions, parsing whole text", req.Filename)
			candidates = tag(mcq.Parse(whole), req.CategoryOverride, nil, difficulty)
		}
	}

	byCategory := make(map[models.CategoryTag]int)
	for _, c := range candidates {
		byCategory[c.Category]++
	}

	source := req.Source
	if source == "" {
		source = req.Filename
	}
	added, err := p.index.Upsert(ctx, req.OwnerID, candidates, source)
	if err != nil {
		return nil, fmt.Errorf("index questions from %q: %w", req.Filename, err)
	}

	res := &models.IngestResult{
		Success:         added > 0 || len(candidates) == 0,
		Extracted:       len(candidates),
		Added:           added,
		SkippedSections: skipped,
		ByCategory:      byCategory,
		Message:         msgNoQuestions,
	}
	if added > 0 {
		res.Message = fmt.Sprintf("Successfully added %d questions to your question bank", added)
	}
	log.Printf("IngestionPipeline: %q for owner %s: %d sections, %d skipped, %d found, %d added",
		req.Filename, req.OwnerID, len(sections), skipped, len(candidates), added)
	return res, nil
}

// parseSections parses sections concurrently and concatenates the results
// in section order.
func (p *Pipeline) parseSections(ctx context.Context, sections []models.Section, override *models.CategoryTag, difficulty models.Difficulty) ([]models.CandidateQuestion, error) {
	results := make([][]models.CandidateQuestion, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ParseConcurrency)
	for i, s := range sections {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = tag(mcq.Parse(s.Text), override, s.Category, difficulty)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.CandidateQuestion
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func joinSections(sections []models.Section) string {
	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n")
}

func sectionCategory(s models.Section) models.CategoryTag {
	if s.Category != nil {
		return *s.Category
	}
	return models.CategoryCustom
}

// tag applies the category precedence override > detected > custom.
func tag(cands []models.CandidateQuestion, override, detected *models.CategoryTag, difficulty models.Difficulty) []models.CandidateQuestion {
	category := models.CategoryCustom
	switch {
	case override != nil:
		category = *override
	case detected != nil:
		category = *detected
	}
	for i := range cands {
		cands[i].Category = category
		cands[i].Difficulty = difficulty
	}
	return cands
}
