package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/maintdesk/backend/internal/owner"
	"github.com/maintdesk/backend/internal/rag"
)

type SearchHandler struct {
	engine *rag.Engine
}

func NewSearchHandler(engine *rag.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

type searchRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"top_k"`
	MinSimilarity float64 `json:"min_similarity"`
}

// Search returns ranked chunks without generation, for callers that
// want the raw retrieval results.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query required"})
		return
	}

	hits, err := h.engine.Search(r.Context(), owner.IDFromContext(r.Context()),
		req.Query, req.TopK, req.MinSimilarity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": hits, "count": len(hits)})
}
