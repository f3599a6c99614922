// Package chat exposes the owner's conversation history.
package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/store"
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// History returns the owner's messages in chronological order.
func (s *Service) History(ctx context.Context, ownerID uuid.UUID) ([]models.Message, error) {
	return s.store.ListMessages(ctx, ownerID)
}

// Clear deletes the owner's history. Documents and chunks are
// untouched.
func (s *Service) Clear(ctx context.Context, ownerID uuid.UUID) error {
	return s.store.ClearMessages(ctx, ownerID)
}
