package handlers

import (
	"net/http"
	"strconv"

	vectorstore "github.com/markdave123-py/Examcraft/internal/core/vector-store"
	"github.com/markdave123-py/Examcraft/internal/models"
)

const (
	defaultQuestionCount = 10
	maxQuestionCount     = 100
)

type QuestionHandler struct {
	store *vectorstore.Store
}

func NewQuestionHandler(store *vectorstore.Store) *QuestionHandler {
	return &QuestionHandler{store: store}
}

type questionsResponse struct {
	Questions []models.IndexedQuestion `json:"questions"`
	Count     int                      `json:"count"`
}

// ListQuestions samples the caller's custom questions.
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	count := defaultQuestionCount
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = min(n, maxQuestionCount)
	}
	categories, err := parseCategories(q["categories"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	questions, err := h.store.Query(r.Context(), userID, count, categories, q.Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if questions == nil {
		questions = []models.IndexedQuestion{}
	}
	writeJSON(w, http.StatusOK, questionsResponse{Questions: questions, Count: len(questions)})
}

func (h *QuestionHandler) CountQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	n, err := h.store.Count(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *QuestionHandler) ClearQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": h.store.Clear(r.Context(), userID)})
}
