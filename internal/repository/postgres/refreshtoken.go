package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, session_id, token, created_at, expires_at, revoked)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, session_id, token, created_at, expires_at, revoked
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken,
		token.ID, token.UserID, token.SessionID, token.Token, token.CreatedAt, token.ExpiresAt, token.Revoked,
	)
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getTokenByValue = `-- name: GetRefreshTokenByValue
SELECT id, user_id, session_id, token, created_at, expires_at, revoked
FROM refresh_tokens
WHERE token = $1
`

// Get token by its value
// Returns the row even if it is expired or revoked already
func (r *RefreshTokenRepo) GetByValue(ctx context.Context, tokenValue string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getTokenByValue, tokenValue)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeSessionTokens = `-- name: RevokeSessionTokens
UPDATE refresh_tokens
SET revoked = TRUE
WHERE user_id = $1 AND session_id = $2 AND NOT revoked
`

// Revoke every live token of the (user, session) pair
// Idempotent: repeating the call affects zero rows
func (r *RefreshTokenRepo) Revoke(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error) {
	tag, err := r.DB.Exec(ctx, revokeSessionTokens, userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const validateSession = `-- name: ValidateSession
SELECT EXISTS (
    SELECT 1 FROM refresh_tokens
    WHERE user_id = $1 AND session_id = $2 AND NOT revoked AND expires_at > $3
)
`

func (r *RefreshTokenRepo) Validate(ctx context.Context, userID uuid.UUID, sessionID string, now time.Time) (bool, error) {
	rows, _ := r.DB.Query(ctx, validateSession, userID, sessionID, now)
	valid, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return valid, nil
}

const revokeTokenByValue = `-- name: RevokeTokenByValue
UPDATE refresh_tokens
SET revoked = TRUE
WHERE token = $1
`

// Rotate revokes the old row and inserts the new one in a single transaction.
// The old row's revoked flag is not checked first: concurrent rotations of the
// same token all pass, each adding a live row for the pair. The transaction
// only guarantees no half-applied state, not exclusivity.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldValue string, newToken models.RefreshToken) (err error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, revokeTokenByValue, oldValue)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
		return err
	}

	_, err = tx.Exec(ctx, saveToken,
		newToken.ID, newToken.UserID, newToken.SessionID, newToken.Token,
		newToken.CreatedAt, newToken.ExpiresAt, newToken.Revoked,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const deleteStaleTokens = `-- name: DeleteStaleTokens
DELETE FROM refresh_tokens
WHERE expires_at < $1 OR revoked
`

// DeleteStale purges rows no validity check can ever accept again
func (r *RefreshTokenRepo) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteStaleTokens, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.SessionID, &t.Token, &t.CreatedAt, &t.ExpiresAt, &t.Revoked)
	return t, err
}
