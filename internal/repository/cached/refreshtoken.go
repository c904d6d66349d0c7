// Package cached decorates the durable refresh token repository with the
// Redis accelerator cache. Reads go cache first and repopulate on miss; a
// failing cache is logged and served from the store so requests survive cache
// outages.
//
// Invalidation is deliberately asymmetric: Rotate drops only the old
// token-by-value entry while Revoke drops only the session validity entry.
// Whatever the other cache still holds ages out within its TTL, which is the
// accepted staleness window.
package cached

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/wordvault/internal/cache"
	"github.com/nkiryanov/wordvault/internal/logger"
	"github.com/nkiryanov/wordvault/internal/models"
	"github.com/nkiryanov/wordvault/internal/repository"
)

type RefreshTokenRepo struct {
	store  repository.RefreshTokenRepo
	cache  *cache.TokenCache
	logger logger.Logger
}

func NewRefreshTokenRepo(store repository.RefreshTokenRepo, tokenCache *cache.TokenCache, l logger.Logger) (*RefreshTokenRepo, error) {
	if store == nil || tokenCache == nil {
		return nil, errors.New("store and cache must not be nil")
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &RefreshTokenRepo{
		store:  store,
		cache:  tokenCache,
		logger: l,
	}, nil
}

// Save persists the row and populates the token-by-value cache
func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	saved, err := r.store.Save(ctx, token)
	if err != nil {
		return saved, err
	}

	if err := r.cache.SetToken(ctx, saved); err != nil {
		r.logger.Warn("failed to cache refresh token", "error", err)
	}

	return saved, nil
}

// GetByValue is cache-aside: cache hit wins, miss reads the store and
// repopulates the cache. Cache failures degrade to a plain store read.
func (r *RefreshTokenRepo) GetByValue(ctx context.Context, tokenValue string) (models.RefreshToken, error) {
	token, err := r.cache.GetToken(ctx, tokenValue)
	switch {
	case err == nil:
		return token, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		r.logger.Warn("token cache read failed, falling back to store", "error", err)
	}

	token, err = r.store.GetByValue(ctx, tokenValue)
	if err != nil {
		return token, err
	}

	if err := r.cache.SetToken(ctx, token); err != nil {
		r.logger.Warn("failed to cache refresh token", "error", err)
	}

	return token, nil
}

// Validate memoizes the store's answer for the session TTL window. A session
// revoked elsewhere may still read as valid here until the entry ages out.
func (r *RefreshTokenRepo) Validate(ctx context.Context, userID uuid.UUID, sessionID string, now time.Time) (bool, error) {
	valid, err := r.cache.GetValid(ctx, userID, sessionID)
	switch {
	case err == nil:
		return valid, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		r.logger.Warn("session cache read failed, falling back to store", "error", err)
	}

	valid, err = r.store.Validate(ctx, userID, sessionID, now)
	if err != nil {
		return false, err
	}

	if err := r.cache.SetValid(ctx, userID, sessionID, valid); err != nil {
		r.logger.Warn("failed to cache session validity", "error", err)
	}

	return valid, nil
}

// Revoke drops the session validity entry only. Cached token rows are left to
// expire through their own TTL.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error) {
	affected, err := r.store.Revoke(ctx, userID, sessionID)
	if err != nil {
		return affected, err
	}

	if err := r.cache.RemoveValid(ctx, userID, sessionID); err != nil {
		r.logger.Warn("failed to drop cached session validity", "error", err)
	}

	return affected, nil
}

// Rotate drops the old token-by-value entry only. The session validity entry
// stays: the session itself remains valid after a rotation.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldValue string, newToken models.RefreshToken) error {
	if err := r.store.Rotate(ctx, oldValue, newToken); err != nil {
		return err
	}

	if err := r.cache.RemoveToken(ctx, oldValue); err != nil {
		r.logger.Warn("failed to drop cached refresh token", "error", err)
	}

	return nil
}

// DeleteStale touches the store only, stale cache entries age out on their own
func (r *RefreshTokenRepo) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	return r.store.DeleteStale(ctx, now)
}
