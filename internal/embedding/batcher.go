// Package embedding turns chunk text into vectors by batching calls to
// the configured embedding provider.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/cache"
	"github.com/maintdesk/backend/internal/llm"
)

// MaxBatchSize is the embedding service's per-request item cap.
const MaxBatchSize = 96

// ProgressFunc observes batching progress as (embedded so far, total).
// Reporting is informational only and never influences control flow.
type ProgressFunc func(done, total int)

type Batcher struct {
	gateway   llm.Gateway
	cache     *cache.Cache // nil disables query-embedding memoization
	batchSize int
}

func NewBatcher(gw llm.Gateway, c *cache.Cache, batchSize int) *Batcher {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Batcher{gateway: gw, cache: c, batchSize: batchSize}
}

// EmbedDocuments embeds every text in order using document-indexing
// mode, one sequential provider call per batch. The whole operation
// fails atomically: a failing batch discards everything and the error
// carries the provider's message. Progress is reported after each
// completed batch.
func (b *Batcher) EmbedDocuments(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := b.gateway.Embed(ctx, llm.EmbedRequest{
			Input:     texts[start:end],
			InputType: llm.InputDocument,
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", start/b.batchSize, err)
		}
		// One vector per text, in order. A provider that returns a
		// short batch would silently misalign chunks and vectors.
		if got := len(resp.Embeddings); got != end-start {
			return nil, fmt.Errorf("%w: batch %d returned %d embeddings for %d texts",
				apperr.ErrEmbeddingService, start/b.batchSize, got, end-start)
		}
		all = append(all, resp.Embeddings...)

		if progress != nil {
			progress(end, len(texts))
		}
	}

	return all, nil
}

// EmbedQuery embeds a single question in query mode. Results are
// memoized in redis when a cache is attached, since the same question
// is often asked more than once.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := queryCacheKey(text)

	if b.cache != nil {
		var cached []float32
		if err := b.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	resp, err := b.gateway.Embed(ctx, llm.EmbedRequest{
		Input:     []string{text},
		InputType: llm.InputQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embed query: empty response")
	}

	if b.cache != nil {
		if err := b.cache.Set(ctx, key, resp.Embeddings[0], time.Hour); err != nil {
			slog.Debug("query embedding cache write failed", "error", err)
		}
	}

	return resp.Embeddings[0], nil
}

func queryCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embed:query:" + hex.EncodeToString(sum[:])
}
