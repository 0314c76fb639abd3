package websource

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/core/ingestion_engine"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const (
	defaultLimitPerQuery = 10
	maxReportedResults   = 20
	maxReportedURLLen    = 100
)

// Sourcer discovers exam papers on the web and feeds each one through the
// ingestion runner, one document at a time.
type Sourcer struct {
	search  core.SearchProvider
	scraper *Scraper
	fetcher *Fetcher
	runner  ingestion_engine.Ingestor
	maxDocs int
}

func NewSourcer(search core.SearchProvider, scraper *Scraper, fetcher *Fetcher, runner ingestion_engine.Ingestor, maxDocs int) *Sourcer {
	return &Sourcer{
		search:  search,
		scraper: scraper,
		fetcher: fetcher,
		runner:  runner,
		maxDocs: maxDocs,
	}
}

// DiscoverLinks runs every query and keeps the results that look like
// documents. A failing query is logged and skipped.
func (s *Sourcer) DiscoverLinks(ctx context.Context, queries []string, maxPerQuery int) []string {
	if maxPerQuery <= 0 {
		maxPerQuery = defaultLimitPerQuery
	}
	var links []string
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		found, err := s.search.Search(ctx, q, maxPerQuery)
		if err != nil {
			log.Printf("WebSourcer: query %q failed: %v", q, err)
			continue
		}
		kept := 0
		for _, l := range found {
			if looksLikeDocument(l) {
				links = append(links, l)
				kept++
			}
		}
		log.Printf("WebSourcer: query %q returned %d links, %d documents", q, len(found), kept)
	}
	return dedupe(links)
}

// ScrapePage lists the document links of an HTML page.
func (s *Sourcer) ScrapePage(ctx context.Context, pageURL string) ([]string, error) {
	return s.scraper.ScrapePage(ctx, pageURL)
}

// Fetch downloads one document.
func (s *Sourcer) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	return s.fetcher.Fetch(ctx, rawURL)
}

func (s *Sourcer) collectLinks(ctx context.Context, req models.WebIngestRequest) []string {
	if len(req.URLs) == 0 {
		queries := req.Queries
		if len(queries) == 0 {
			queries = DefaultQueries
		}
		return s.DiscoverLinks(ctx, queries, req.LimitPerQuery)
	}
	if !req.ScrapePages {
		return dedupe(req.URLs)
	}
	var links []string
	for _, page := range dedupe(req.URLs) {
		found, err := s.ScrapePage(ctx, page)
		if err != nil {
			log.Printf("WebSourcer: scrape %s failed: %v", page, err)
			continue
		}
		links = append(links, found...)
	}
	return dedupe(links)
}

// Ingest runs a whole web job for owner. Documents are processed
// sequentially; a failing link never aborts the others.
func (s *Sourcer) Ingest(ctx context.Context, ownerID string, req models.WebIngestRequest) *models.WebIngestSummary {
	links := s.collectLinks(ctx, req)
	if s.maxDocs > 0 && len(links) > s.maxDocs {
		links = links[:s.maxDocs]
	}

	summary := &models.WebIngestSummary{TotalURLs: len(links), Results: []models.LinkResult{}}
	if len(links) == 0 {
		summary.Message = "No document links found"
		return summary
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	for _, link := range links {
		if ctx.Err() != nil {
			log.Printf("WebSourcer: stopping after %d of %d links: %v", summary.Processed+summary.Failed, len(links), ctx.Err())
			break
		}
		result := s.ingestLink(ctx, ownerID, link, difficulty, req.SkipCategories)
		switch result.Status {
		case models.LinkSuccess, models.LinkPartial:
			summary.Processed++
			summary.QuestionsAdded += result.Questions
		default:
			summary.Failed++
		}
		if len(summary.Results) < maxReportedResults {
			result.URL = truncate(result.URL, maxReportedURLLen)
			summary.Results = append(summary.Results, result)
		}
	}

	summary.Success = summary.Processed > 0
	summary.Message = fmt.Sprintf("Processed %d of %d documents, added %d questions",
		summary.Processed, summary.TotalURLs, summary.QuestionsAdded)
	log.Printf("WebSourcer: %s for %s", summary.Message, ownerID)
	return summary
}

func (s *Sourcer) ingestLink(ctx context.Context, ownerID, link string, difficulty models.Difficulty, skip []models.CategoryTag) models.LinkResult {
	doc, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		return models.LinkResult{URL: link, Status: models.LinkFetchFailed, Error: err.Error()}
	}

	res, err := s.runner.Run(ctx, models.IngestRequest{
		OwnerID:        ownerID,
		Filename:       filenameFromURL(link),
		ContentType:    doc.ContentType,
		Data:           doc.Data,
		Difficulty:     difficulty,
		SkipCategories: skip,
		Source:         link,
	})
	switch {
	case errors.Is(err, core.ErrExtractionFailed):
		// Downloaded fine, just nothing readable in it.
		return models.LinkResult{URL: link, Status: models.LinkPartial, Error: "no extractable text"}
	case err != nil:
		return models.LinkResult{URL: link, Status: models.LinkError, Error: err.Error()}
	case res.Added > 0:
		return models.LinkResult{URL: link, Status: models.LinkSuccess, Questions: res.Added}
	default:
		return models.LinkResult{URL: link, Status: models.LinkPartial}
	}
}
