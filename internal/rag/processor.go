package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/config"
	"github.com/maintdesk/backend/internal/embedding"
	"github.com/maintdesk/backend/internal/extract"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/store"
	"github.com/maintdesk/backend/pkg/chunker"
)

// Pipeline stages reported during document processing.
type Stage string

const (
	StageExtracting Stage = "extracting"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageMerging    Stage = "merging"
	StageStoring    Stage = "storing"
	StageComplete   Stage = "complete"
)

// Progress is reported to the observer as the pipeline advances.
// Percent is non-decreasing and reaches 100 only on StageComplete.
type Progress struct {
	Stage   Stage `json:"stage"`
	Percent int   `json:"percent"`
}

type ProgressFunc func(Progress)

// Embedding work spans this percentage window; the other stages get
// the fixed points around it.
const (
	pctExtracted = 10
	pctChunked   = 15
	pctEmbedded  = 85
	pctMerged    = 90
	pctStored    = 95
)

// Processor runs the write path for one document: extract, chunk,
// embed, merge, store. Stages run strictly in sequence; the store
// commit is all-or-nothing, though extracted text is saved as soon as
// it is available so a retry after an embedding failure skips
// re-extraction.
type Processor struct {
	store   store.Store
	batcher *embedding.Batcher
	cfg     config.RAGConfig
}

func NewProcessor(st store.Store, batcher *embedding.Batcher, cfg config.RAGConfig) *Processor {
	return &Processor{store: st, batcher: batcher, cfg: cfg}
}

// Process runs the full pipeline for the owner's document. The
// document must exist, belong to ownerID, and not be processed yet.
func (p *Processor) Process(ctx context.Context, docID, ownerID uuid.UUID, progress ProgressFunc) error {
	report := func(stage Stage, percent int) {
		if progress != nil {
			progress(Progress{Stage: stage, Percent: percent})
		}
	}

	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.OwnerID != ownerID {
		return fmt.Errorf("%w: document %s", apperr.ErrUnauthorized, docID)
	}
	if doc.Processed {
		return fmt.Errorf("%w: document %s", apperr.ErrAlreadyProcessed, docID)
	}

	doc.Status = models.DocStatusProcessing
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return err
	}

	if err := p.run(ctx, doc, report); err != nil {
		doc.Status = models.DocStatusFailed
		if updateErr := p.store.UpdateDocument(ctx, doc); updateErr != nil {
			slog.Error("mark document failed", "document_id", doc.ID, "error", updateErr)
		}
		return err
	}

	report(StageComplete, 100)
	return nil
}

func (p *Processor) run(ctx context.Context, doc *models.Document, report func(Stage, int)) error {
	report(StageExtracting, 0)

	if doc.Text == "" {
		text, err := extract.Extract(ctx, doc.RawData, doc.MediaType)
		if err != nil {
			return err
		}
		doc.Text = text
		// Saved immediately: a retry after a later failure will not
		// re-extract.
		if err := p.store.UpdateDocument(ctx, doc); err != nil {
			return err
		}
	}

	report(StageChunking, pctExtracted)

	tabular := extract.IsTabular(doc.MediaType)
	chunks := chunker.Chunk(doc.Text, chunker.ChunkOptions{
		Size:       p.cfg.ChunkSize,
		Overlap:    p.cfg.ChunkOverlap,
		Structured: tabular,
	})
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks from document %s", apperr.ErrExtractionFailed, doc.ID)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	report(StageEmbedding, pctChunked)

	vectors, err := p.batcher.EmbedDocuments(ctx, texts, func(done, total int) {
		span := pctEmbedded - pctChunked
		report(StageEmbedding, pctChunked+span*done/total)
	})
	if err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}

	report(StageMerging, pctEmbedded)

	threshold := p.cfg.MergeThreshold
	if tabular {
		// Distinct rows often read alike; a stricter threshold keeps
		// them from collapsing.
		threshold = p.cfg.TabularThreshold
	}
	mergedTexts, mergedVecs, seeds, err := MergeChunks(texts, vectors, threshold)
	if err != nil {
		return fmt.Errorf("merge chunks: %w", err)
	}

	report(StageStoring, pctMerged)

	records := make([]models.Chunk, len(mergedTexts))
	now := time.Now()
	for i := range mergedTexts {
		records[i] = models.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			OwnerID:    doc.OwnerID,
			Seq:        seeds[i],
			Text:       mergedTexts[i],
			Embedding:  mergedVecs[i],
			CreatedAt:  now,
		}
	}

	if err := p.store.CommitProcessed(ctx, doc, records); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	slog.Info("document processed",
		"document_id", doc.ID,
		"chunks", len(chunks),
		"stored", len(records),
		"merged_away", len(chunks)-len(records),
	)

	report(StageStoring, pctStored)
	return nil
}
