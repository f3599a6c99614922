// Package document owns the upload lifecycle: accepting files,
// listing and deleting them, and gating what may enter the processing
// pipeline.
package document

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/extract"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/store"
)

// MaxUploadBytes caps a single upload. Manuals run large but anything
// past this is almost certainly not a document.
const MaxUploadBytes = 50 << 20

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Upload registers a new document in pending state. The raw payload is
// kept on the row until processing extracts its text.
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, filename, mediaType string, data []byte) (*models.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", apperr.ErrInvalidInput)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", apperr.ErrInvalidInput, MaxUploadBytes)
	}

	// Browsers often send generic content types; fall back to the
	// filename extension before rejecting.
	normalized := extract.Normalize(mediaType)
	if !extract.IsSupported(normalized) {
		byExt := extract.Normalize(path.Ext(filename))
		if !extract.IsSupported(byExt) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, mediaType)
		}
		normalized = byExt
	}

	doc := &models.Document{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Filename:   filename,
		MediaType:  normalized,
		SizeBytes:  int64(len(data)),
		RawData:    data,
		Status:     models.DocStatusPending,
		UploadedAt: time.Now(),
	}
	if err := s.store.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// Get returns the owner's document. A document owned by someone else
// reports ErrUnauthorized rather than pretending it does not exist.
func (s *Service) Get(ctx context.Context, ownerID, docID uuid.UUID) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: document %s", apperr.ErrUnauthorized, docID)
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]models.Document, error) {
	return s.store.ListDocuments(ctx, ownerID)
}

// Delete removes the owner's document and all of its chunks.
func (s *Service) Delete(ctx context.Context, ownerID, docID uuid.UUID) error {
	if _, err := s.Get(ctx, ownerID, docID); err != nil {
		return err
	}
	return s.store.DeleteDocument(ctx, docID)
}

// CheckProcessable verifies a document may enter the pipeline:
// it exists, belongs to the owner, and has not been processed.
func (s *Service) CheckProcessable(ctx context.Context, ownerID, docID uuid.UUID) (*models.Document, error) {
	doc, err := s.Get(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}
	if doc.Processed {
		return nil, fmt.Errorf("%w: document %s", apperr.ErrAlreadyProcessed, docID)
	}
	return doc, nil
}

func (s *Service) Stats(ctx context.Context, ownerID uuid.UUID) (*store.Stats, error) {
	return s.store.Stats(ctx, ownerID)
}
