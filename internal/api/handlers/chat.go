package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/maintdesk/backend/internal/chat"
	"github.com/maintdesk/backend/internal/owner"
	"github.com/maintdesk/backend/internal/rag"
)

type ChatHandler struct {
	engine  *rag.Engine
	history *chat.Service
}

func NewChatHandler(engine *rag.Engine, history *chat.Service) *ChatHandler {
	return &ChatHandler{engine: engine, history: history}
}

type queryRequest struct {
	Question string `json:"question"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}

	ans, err := h.engine.Query(r.Context(), owner.IDFromContext(r.Context()), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.history.History(r.Context(), owner.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs, "count": len(msgs)})
}

func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context(), owner.IDFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
