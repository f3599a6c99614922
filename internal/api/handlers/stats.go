package handlers

import (
	"net/http"

	"github.com/maintdesk/backend/internal/document"
	"github.com/maintdesk/backend/internal/owner"
)

type StatsHandler struct {
	svc *document.Service
}

func NewStatsHandler(svc *document.Service) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), owner.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
