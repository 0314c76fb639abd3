package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Examcraft/internal/core/jobs"
	"github.com/markdave123-py/Examcraft/internal/models"
	"github.com/markdave123-py/Examcraft/internal/services"
)

// multipartOverhead is the slack allowed on top of the file for form fields.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	ingest    *services.IngestService
	tracker   *jobs.Tracker
	maxUpload int64
}

func NewDocumentHandler(ingest *services.IngestService, tracker *jobs.Tracker, maxUpload int64) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, tracker: tracker, maxUpload: maxUpload}
}

type uploadResponse struct {
	JobID   string           `json:"job_id"`
	Status  models.JobStatus `json:"status"`
	Message string           `json:"message"`
}

// UploadDocument accepts a question paper and queues it for ingestion.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	if r.ContentLength > h.maxUpload+multipartOverhead {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("pdf")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	var override *models.CategoryTag
	if v := r.FormValue("category"); v != "" {
		cats, err := parseCategories([]string{v})
		if err != nil || len(cats) != 1 {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		override = &cats[0]
	}
	skip, err := parseCategories(r.MultipartForm.Value["skip_categories"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	difficulty, err := parseDifficulty(r.FormValue("difficulty"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	job, err := h.ingest.SubmitUpload(r.Context(), services.UploadRequest{
		OwnerID:          userID,
		Filename:         filepath.Base(header.Filename),
		ContentType:      header.Header.Get("Content-Type"),
		Data:             data,
		Difficulty:       difficulty,
		CategoryOverride: override,
		SkipCategories:   skip,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Document queued for processing",
	})
}

// GetJob returns one job of the caller.
func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	job, err := h.tracker.Get(r.Context(), userID, chi.URLParam(r, "jobID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetLatestJob returns the caller's most recent job, or status "none".
func (h *DocumentHandler) GetLatestJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	job, err := h.tracker.Latest(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if job == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "none"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}
