package handlers

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/markdave123-py/Examcraft/internal/services"
)

type AdminHandler struct {
	bank   *services.BankService
	admins []string
}

func NewAdminHandler(bank *services.BankService, admins []string) *AdminHandler {
	return &AdminHandler{bank: bank, admins: admins}
}

// ImportBank starts a question-bank import job and answers 202 with it.
// Without user_id every owner is migrated. The job is owned by the caller
// and polled through the upload status endpoint.
func (h *AdminHandler) ImportBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	if !slices.Contains(h.admins, userID) {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	dedupe := true
	if v := r.URL.Query().Get("dedupe"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "dedupe must be a boolean")
			return
		}
		dedupe = b
	}

	job, err := h.bank.SubmitImport(r.Context(), userID, r.URL.Query().Get("user_id"), dedupe)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, uploadResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Import started",
	})
}
