// Package owner threads the authenticated owner id through request
// contexts. Every read and write path is scoped by this id; handlers
// reject requests where it is absent rather than fall back to a
// default.
package owner

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ownerKey contextKey = "owner"

func WithID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey, id)
}

// IDFromContext returns the owner id, or uuid.Nil when none was set.
func IDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ownerKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
