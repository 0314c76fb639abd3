package models

import (
	"time"
)

// CategoryTag is the closed set of exam sections a question can belong to.
type CategoryTag string

const (
	CategoryReasoning            CategoryTag = "reasoning"
	CategoryGK                   CategoryTag = "gk"
	CategoryCurrentAffairs       CategoryTag = "current_affairs"
	CategoryQuantitativeAptitude CategoryTag = "quantitative_aptitude"
	CategoryEnglish              CategoryTag = "english"
	CategoryCustom               CategoryTag = "custom"
)

// Categories lists every known tag.
var Categories = []CategoryTag{
	CategoryReasoning,
	CategoryGK,
	CategoryCurrentAffairs,
	CategoryQuantitativeAptitude,
	CategoryEnglish,
	CategoryCustom,
}

// ParseCategory maps a raw string onto a known tag.
func ParseCategory(s string) (CategoryTag, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty returns medium for anything it does not recognise.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), true
	}
	return DifficultyMedium, false
}

// Section is a contiguous span of document text. Category is nil for an
// unlabeled preamble.
type Section struct {
	Category  *CategoryTag `json:"category"`
	Text      string       `json:"text"`
	StartLine int          `json:"start_line"`
	// Heading is the line that opened the section, empty for the preamble.
	Heading string `json:"heading,omitempty"`
}

// CandidateQuestion is a parsed MCQ. Options always has four entries.
type CandidateQuestion struct {
	Question       string      `json:"question"`
	Options        [4]string   `json:"options"`
	AnswerIndex    int         `json:"answer_index"`
	AnswerDetected bool        `json:"answer_detected"`
	Explanation    string      `json:"explanation"`
	Category       CategoryTag `json:"category"`
	Difficulty     Difficulty  `json:"difficulty"`
}

// IndexedQuestion is a candidate stored in an owner's collection.
type IndexedQuestion struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"-"`
	CandidateQuestion
	Source         string    `db:"source" json:"source"`
	EmbeddingModel string    `db:"embedding_model" json:"-"`
	Embedding      []float32 `db:"embedding" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Collection describes one owner's question collection.
type Collection struct {
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobError      JobStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobError
}

type JobKind string

const (
	JobKindUpload JobKind = "upload"
	JobKindWeb    JobKind = "web"
	JobKindImport JobKind = "import"
)

// IngestionJob tracks one ingestion request from submission to a terminal state.
type IngestionJob struct {
	ID         string            `db:"id" json:"job_id"`
	OwnerID    string            `db:"owner_id" json:"-"`
	Filename   string            `db:"filename" json:"filename"`
	Kind       JobKind           `db:"kind" json:"kind"`
	Status     JobStatus         `db:"status" json:"status"`
	Extracted  int               `db:"extracted" json:"extracted"`
	Added      int               `db:"added" json:"added"`
	Message    string            `db:"message" json:"message"`
	WebSummary *WebIngestSummary `db:"web_summary" json:"web_summary,omitempty"`

	// StagedObject is where an upload was held while it was processed.
	StagedObject string        `db:"staged_object" json:"staged_object,omitempty"`
	ImportReport *ImportReport `db:"import_report" json:"import_report,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// IngestRequest is the transient Document handed to the pipeline.
type IngestRequest struct {
	OwnerID          string
	Filename         string
	ContentType      string
	Data             []byte
	Difficulty       Difficulty
	CategoryOverride *CategoryTag
	SkipCategories   []CategoryTag
	Source           string
}

// IngestResult summarises one pipeline run.
type IngestResult struct {
	Success         bool                `json:"success"`
	Extracted       int                 `json:"extracted"`
	Added           int                 `json:"added"`
	SkippedSections int                 `json:"skipped_sections"`
	ByCategory      map[CategoryTag]int `json:"by_category"`
	Message         string              `json:"message"`
}

// WebIngestRequest drives a web-sourced ingestion job.
type WebIngestRequest struct {
	Queries        []string      `json:"queries"`
	URLs           []string      `json:"urls"`
	ScrapePages    bool          `json:"scrape_pages"`
	SkipCategories []CategoryTag `json:"skip_categories"`
	LimitPerQuery  int           `json:"limit_per_query"`
	Difficulty     Difficulty    `json:"difficulty"`
}

type LinkStatus string

const (
	LinkSuccess     LinkStatus = "success"
	LinkPartial     LinkStatus = "partial"
	LinkFetchFailed LinkStatus = "fetch_failed"
	LinkError       LinkStatus = "error"
)

// LinkResult is the outcome for one fetched URL.
type LinkResult struct {
	URL       string     `json:"url"`
	Status    LinkStatus `json:"status"`
	Questions int        `json:"questions"`
	Error     string     `json:"error,omitempty"`
}

// WebIngestSummary aggregates the per-link outcomes of a web job.
type WebIngestSummary struct {
	Success        bool         `json:"success"`
	TotalURLs      int          `json:"total_urls"`
	Processed      int          `json:"processed"`
	Failed         int          `json:"failed"`
	QuestionsAdded int          `json:"questions_added"`
	Results        []LinkResult `json:"results"`
	Message        string       `json:"message,omitempty"`
}

// ImportReport is returned by the question-bank migration.
type ImportReport struct {
	Imported          int      `json:"imported"`
	SkippedDuplicates int      `json:"skipped_duplicates"`
	UsersProcessed    int      `json:"users_processed"`
	Errors            []string `json:"errors"`
}
