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
	"github.com/maintdesk/backend/internal/llm"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/store"
)

const systemPrompt = `You are an AI maintenance assistant for industrial equipment. Answer using the provided source excerpts from the user's technical documents. When a source supports your answer, cite it by its number, for example [Source 2]. If the sources do not cover the question, say so and answer from general maintenance knowledge, making clear which parts are not backed by the user's documents. Keep answers practical and specific.`

// Source identifies a document whose chunks grounded the answer.
type Source struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
}

// Answer is the result of one query round trip.
type Answer struct {
	Answer  string   `json:"answer"`
	Model   string   `json:"model"`
	Sources []Source `json:"sources"`
}

// Engine answers questions against the owner's stored chunks. Every
// exchange is appended to the owner's chat history.
type Engine struct {
	store   store.Store
	batcher *embedding.Batcher
	gateway llm.Gateway
	cfg     config.RAGConfig
}

func NewEngine(st store.Store, batcher *embedding.Batcher, gw llm.Gateway, cfg config.RAGConfig) *Engine {
	return &Engine{store: st, batcher: batcher, gateway: gw, cfg: cfg}
}

// Query embeds the question, retrieves the owner's best-matching
// chunks and asks the generation provider for a grounded answer. With
// no matches above the similarity floor the provider is still called,
// with no evidence and an empty source list.
func (e *Engine) Query(ctx context.Context, ownerID uuid.UUID, question string) (*Answer, error) {
	if !e.gateway.Configured() {
		return nil, fmt.Errorf("%w: no LLM provider available", apperr.ErrNotConfigured)
	}

	queryVec, err := e.batcher.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := e.store.Search(ctx, queryVec, store.SearchOptions{
		OwnerID:       ownerID,
		TopK:          e.cfg.TopK,
		MinSimilarity: e.cfg.MinSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	evidence := make([]string, len(results))
	for i, r := range results {
		evidence[i] = r.Chunk.Text
	}

	resp, err := e.gateway.Generate(ctx, llm.GenerateRequest{
		System:   systemPrompt,
		Question: question,
		Evidence: evidence,
	})
	if err != nil {
		return nil, err
	}

	sources, sourceIDs, err := e.resolveSources(ctx, results)
	if err != nil {
		return nil, err
	}

	if err := e.saveExchange(ctx, ownerID, question, resp.Answer, sourceIDs); err != nil {
		return nil, fmt.Errorf("save chat exchange: %w", err)
	}

	slog.Info("query answered",
		"owner_id", ownerID,
		"matches", len(results),
		"sources", len(sources),
		"model", resp.Model,
	)

	return &Answer{Answer: resp.Answer, Model: resp.Model, Sources: sources}, nil
}

// SearchHit is one raw retrieval result.
type SearchHit struct {
	DocumentID uuid.UUID `json:"document_id"`
	Seq        int       `json:"seq"`
	Text       string    `json:"text"`
	Similarity float64   `json:"similarity"`
}

// Search runs retrieval without generation. TopK and minSimilarity
// fall back to the configured defaults when zero.
func (e *Engine) Search(ctx context.Context, ownerID uuid.UUID, query string, topK int, minSimilarity float64) ([]SearchHit, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	if minSimilarity <= 0 {
		minSimilarity = e.cfg.MinSimilarity
	}

	queryVec, err := e.batcher.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := e.store.Search(ctx, queryVec, store.SearchOptions{
		OwnerID:       ownerID,
		TopK:          topK,
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			DocumentID: r.Chunk.DocumentID,
			Seq:        r.Chunk.Seq,
			Text:       r.Chunk.Text,
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// resolveSources deduplicates the matched chunks' documents, keeping
// the rank order of each document's first appearance.
func (e *Engine) resolveSources(ctx context.Context, results []store.SearchResult) ([]Source, []uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(results))
	sources := make([]Source, 0, len(results))
	ids := make([]uuid.UUID, 0, len(results))
	for _, r := range results {
		docID := r.Chunk.DocumentID
		if seen[docID] {
			continue
		}
		seen[docID] = true
		doc, err := e.store.GetDocument(ctx, docID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve source %s: %w", docID, err)
		}
		sources = append(sources, Source{DocumentID: docID, Filename: doc.Filename})
		ids = append(ids, docID)
	}
	return sources, ids, nil
}

func (e *Engine) saveExchange(ctx context.Context, ownerID uuid.UUID, question, answer string, sourceIDs []uuid.UUID) error {
	now := time.Now()
	if err := e.store.AppendMessage(ctx, &models.Message{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Role:      models.RoleUser,
		Content:   question,
		CreatedAt: now,
	}); err != nil {
		return err
	}
	return e.store.AppendMessage(ctx, &models.Message{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Role:      models.RoleAssistant,
		Content:   answer,
		SourceIDs: sourceIDs,
		CreatedAt: now.Add(time.Millisecond),
	})
}
