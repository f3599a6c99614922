package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a user's conversation history. Assistant
// messages carry the ids of the documents whose chunks grounded the
// answer; user messages leave SourceIDs empty.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	SourceIDs []uuid.UUID `json:"source_ids,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
