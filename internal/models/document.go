package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file owned by a single user. RawData holds
// the original payload until text extraction succeeds, after which it
// is dropped to keep rows small.
type Document struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Filename   string    `json:"filename"`
	MediaType  string    `json:"media_type"`
	SizeBytes  int64     `json:"size_bytes"`
	Text       string    `json:"-"`
	RawData    []byte    `json:"-"`
	Status     string    `json:"status"`
	Processed  bool      `json:"processed"`
	UploadedAt time.Time `json:"uploaded_at"`
}

const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusReady      = "ready"
	DocStatusFailed     = "failed"
)

// Chunk is one embedded slice of a document's extracted text. Chunks
// are written in bulk after a document is processed and never mutated.
// Sequence numbers are unique per document but may be sparse after
// near-duplicate merging.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Seq        int       `json:"seq"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
