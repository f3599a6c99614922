// Package store persists documents, chunk embeddings, and
// conversation messages. Two backends implement the same interface: a
// local sqlite file (the default) and postgres with pgvector for
// deployments that already run one. Every read path is scoped by owner
// id as a hard filter.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/maintdesk/backend/internal/models"
)

type SearchOptions struct {
	OwnerID       uuid.UUID
	TopK          int
	MinSimilarity float64
}

type SearchResult struct {
	Chunk      models.Chunk
	Similarity float64
}

type Stats struct {
	ChunkCount    int `json:"chunk_count"`
	DocumentCount int `json:"document_count"`
}

// isZeroVector reports whether every component of v is zero. Cosine
// similarity against such a vector is undefined; both backends treat
// it as 0 for every chunk.
func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

type Store interface {
	// Documents. Get returns the row regardless of owner so callers
	// can distinguish not-found from owned-by-someone-else.
	PutDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, ownerID uuid.UUID) ([]models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	// DeleteDocument removes the row and cascades to its chunks.
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	// CommitProcessed stores a document's chunks and flips it to
	// processed in one transaction: either everything lands or nothing
	// does.
	CommitProcessed(ctx context.Context, doc *models.Document, chunks []models.Chunk) error

	// Search runs owner-scoped cosine similarity ranking. Results
	// below MinSimilarity are dropped; ties keep insertion order.
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error)

	// Conversation history, chronological.
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, ownerID uuid.UUID) ([]models.Message, error)
	ClearMessages(ctx context.Context, ownerID uuid.UUID) error

	Ping(ctx context.Context) error
	Close() error
}
