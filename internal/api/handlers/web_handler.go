package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/markdave123-py/Examcraft/internal/core/websource"
	"github.com/markdave123-py/Examcraft/internal/models"
	"github.com/markdave123-py/Examcraft/internal/services"
)

type WebHandler struct {
	ingest  *services.IngestService
	sourcer *websource.Sourcer
}

func NewWebHandler(ingest *services.IngestService, sourcer *websource.Sourcer) *WebHandler {
	return &WebHandler{ingest: ingest, sourcer: sourcer}
}

type webIngestBody struct {
	Queries        []string `json:"queries"`
	URLs           []string `json:"urls"`
	ScrapePages    bool     `json:"scrape_pages"`
	SkipCategories []string `json:"skip_categories"`
	LimitPerQuery  int      `json:"limit_per_query"`
	Difficulty     string   `json:"difficulty"`
}

// IngestWeb queues a web-sourcing job.
func (h *WebHandler) IngestWeb(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var body webIngestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	skip, err := parseCategories(body.SkipCategories)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	difficulty, err := parseDifficulty(body.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.ingest.SubmitWeb(r.Context(), userID, models.WebIngestRequest{
		Queries:        body.Queries,
		URLs:           body.URLs,
		ScrapePages:    body.ScrapePages,
		SkipCategories: skip,
		LimitPerQuery:  body.LimitPerQuery,
		Difficulty:     difficulty,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, uploadResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Web ingestion queued",
	})
}

// SearchLinks previews the document links a query would ingest.
func (h *WebHandler) SearchLinks(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerID(w, r); !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 10)
	}
	links := h.sourcer.DiscoverLinks(r.Context(), []string{q}, limit)
	if links == nil {
		links = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"links": links})
}

// ScrapeLinks lists the document links found on a page.
func (h *WebHandler) ScrapeLinks(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerID(w, r); !ok {
		return
	}
	page := strings.TrimSpace(r.URL.Query().Get("url"))
	if u, err := url.Parse(page); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an http(s) url")
		return
	}
	links, err := h.sourcer.ScrapePage(r.Context(), page)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if links == nil {
		links = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"links": links})
}
