// Package workers holds the asynq task handlers run by cmd/worker.
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/cache"
	"github.com/maintdesk/backend/internal/queue"
	"github.com/maintdesk/backend/internal/rag"
)

const progressTTL = time.Hour

// ProgressKey is where the latest pipeline progress snapshot for a
// document lives in redis. The status endpoint reads it while a job is
// running.
func ProgressKey(docID uuid.UUID) string {
	return "progress:document:" + docID.String()
}

// DocumentWorker runs the ingestion pipeline for queued documents.
type DocumentWorker struct {
	processor *rag.Processor
	cache     *cache.Cache // nil disables progress snapshots
}

func NewDocumentWorker(processor *rag.Processor, c *cache.Cache) *DocumentWorker {
	return &DocumentWorker{processor: processor, cache: c}
}

func (w *DocumentWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}
	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return fmt.Errorf("parse owner ID: %w", err)
	}

	slog.Info("processing document", "document_id", docID, "owner_id", ownerID)

	err = w.processor.Process(ctx, docID, ownerID, func(p rag.Progress) {
		w.publishProgress(ctx, docID, p)
	})
	if err != nil {
		slog.Error("document processing failed", "document_id", docID, "error", err)
		if isPermanent(err) {
			// Retrying cannot change the outcome.
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	slog.Info("document processed", "document_id", docID)
	return nil
}

func (w *DocumentWorker) publishProgress(ctx context.Context, docID uuid.UUID, p rag.Progress) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Set(ctx, ProgressKey(docID), p, progressTTL); err != nil {
		slog.Debug("publish progress failed", "document_id", docID, "error", err)
	}
}

// isPermanent separates input errors, which no retry fixes, from
// transient service failures.
func isPermanent(err error) bool {
	return errors.Is(err, apperr.ErrUnsupportedFormat) ||
		errors.Is(err, apperr.ErrExtractionFailed) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrUnauthorized) ||
		errors.Is(err, apperr.ErrAlreadyProcessed) ||
		errors.Is(err, apperr.ErrNotConfigured)
}
