package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	middleware "github.com/markdave123-py/Examcraft/internal/api/middlewares"
	"github.com/markdave123-py/Examcraft/internal/core"
	"github.com/markdave123-py/Examcraft/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBankUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("handlers: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
	}
	return id, ok
}

// parseCategories accepts comma separated values, repeated or not.
func parseCategories(values []string) ([]models.CategoryTag, error) {
	var out []models.CategoryTag
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			c, ok := models.ParseCategory(part)
			if !ok {
				return nil, errors.New("unknown category " + part)
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func parseDifficulty(s string) (models.Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return models.DifficultyMedium, nil
	}
	d, ok := models.ParseDifficulty(s)
	if !ok {
		return "", errors.New("difficulty must be easy, medium or hard")
	}
	return d, nil
}
