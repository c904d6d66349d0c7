package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted record of a refresh token.
// The row is the source of truth for token validity: a token counts as
// active while it is not revoked and not expired. The only mutation the
// row ever sees is Revoked flipping to true; rows leave the table through
// the cleanup sweeper only.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	SessionID string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Active reports whether the token may still be exchanged at the given moment.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
