package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/wordvault/internal/models"
)

type CreateUserParams struct {
	Username     string
	DisplayName  string
	PasswordHash string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by its id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// RefreshToken repository interface
//
// The durable store is the source of truth for token validity. Implementations
// that sit in front of it (cache decorators) may serve bounded-stale answers
// for GetByValue and Validate but must never report a token the store has
// purged or never held.
type RefreshTokenRepo interface {
	// Persist a new token row
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Exact-match lookup by token value
	// Has to return apperrors.ErrRefreshTokenNotFound if no row exists
	GetByValue(ctx context.Context, tokenValue string) (models.RefreshToken, error)

	// Set revoked on every non-revoked row of the (user, session) pair.
	// Idempotent: repeating the call affects zero rows and is not an error.
	Revoke(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error)

	// True iff a non-revoked row with expires_at after now exists for the pair
	Validate(ctx context.Context, userID uuid.UUID, sessionID string, now time.Time) (bool, error)

	// Revoke old row and insert the new one as a single unit of work.
	// There is intentionally no check of the old row's revoked flag before
	// accepting the new token: two concurrent rotations of the same old token
	// both succeed and leave two live rows for the pair until the next
	// Revoke or sweep. Known race, kept as-is.
	Rotate(ctx context.Context, oldValue string, newToken models.RefreshToken) error

	// Delete every row that expired before now or is revoked.
	// Returns the number of deleted rows.
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}
