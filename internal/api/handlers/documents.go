package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maintdesk/backend/internal/cache"
	"github.com/maintdesk/backend/internal/document"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/owner"
	"github.com/maintdesk/backend/internal/queue"
	"github.com/maintdesk/backend/internal/queue/workers"
	"github.com/maintdesk/backend/internal/rag"
)

type DocumentHandler struct {
	svc   *document.Service
	queue *queue.Client
	cache *cache.Cache
}

func NewDocumentHandler(svc *document.Service, qc *queue.Client, c *cache.Cache) *DocumentHandler {
	return &DocumentHandler{svc: svc, queue: qc, cache: c}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, document.MaxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload"})
		return
	}

	doc, err := h.svc.Upload(r.Context(), owner.IDFromContext(r.Context()),
		header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// Process enqueues the ingestion pipeline for a pending document. The
// heavy work happens on the worker; this returns 202 immediately.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}
	ownerID := owner.IDFromContext(r.Context())

	doc, err := h.svc.CheckProcessable(r.Context(), ownerID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.queue.EnqueueDocumentProcess(queue.DocumentProcessPayload{
		DocumentID: doc.ID.String(),
		OwnerID:    ownerID.String(),
	}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     doc.ID.String(),
		"status": models.DocStatusProcessing,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.List(r.Context(), owner.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.svc.Get(r.Context(), owner.IDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Status reports the document state plus, while a job is running, the
// latest pipeline progress snapshot.
func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.svc.Get(r.Context(), owner.IDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"id":        doc.ID.String(),
		"status":    doc.Status,
		"processed": doc.Processed,
	}
	if doc.Status == models.DocStatusProcessing && h.cache != nil {
		var p rag.Progress
		if err := h.cache.Get(r.Context(), workers.ProgressKey(doc.ID), &p); err == nil {
			resp["progress"] = p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	if err := h.svc.Delete(r.Context(), owner.IDFromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
