// Package cache holds the Redis accelerator caches in front of the refresh
// token store: full rows keyed by token value and memoized session validity
// answers keyed by (user, session). Entries are disposable copies with TTLs
// shorter than the token lifetime; losing them costs a store round trip, never
// data.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/wordvault/internal/models"
)

const (
	tokenKeyPrefix   = "rt"
	sessionKeyPrefix = "sv"

	defaultTokenTTL   = 20 * time.Minute
	defaultSessionTTL = 10 * time.Minute
	defaultOpTimeout  = 300 * time.Millisecond
)

// ErrCacheMiss is returned when the requested key is not cached
var ErrCacheMiss = errors.New("cache miss")

type Config struct {
	// TTL for token rows cached by value
	// If not set than default is used
	TokenTTL time.Duration

	// TTL for memoized session validity answers
	// If not set than default is used
	SessionTTL time.Duration

	// Budget for a single Redis operation
	// If not set than default is used
	OpTimeout time.Duration
}

type TokenCache struct {
	redis      *redis.Client
	tokenTTL   time.Duration
	sessionTTL time.Duration
	opTimeout  time.Duration
}

func New(client *redis.Client, cfg Config) (*TokenCache, error) {
	if client == nil {
		return nil, errors.New("redis client must not be nil")
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.TokenTTL, defaultTokenTTL)
	setDefaultDuration(&cfg.SessionTTL, defaultSessionTTL)
	setDefaultDuration(&cfg.OpTimeout, defaultOpTimeout)

	return &TokenCache{
		redis:      client,
		tokenTTL:   cfg.TokenTTL,
		sessionTTL: cfg.SessionTTL,
		opTimeout:  cfg.OpTimeout,
	}, nil
}

func tokenKey(tokenValue string) string {
	return tokenKeyPrefix + ":" + tokenValue
}

func sessionKey(userID uuid.UUID, sessionID string) string {
	return sessionKeyPrefix + ":" + userID.String() + ":" + sessionID
}

// GetToken returns the cached row for the token value or ErrCacheMiss
func (c *TokenCache) GetToken(ctx context.Context, tokenValue string) (models.RefreshToken, error) {
	var token models.RefreshToken

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	data, err := c.redis.Get(ctx, tokenKey(tokenValue)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return token, ErrCacheMiss
	case err != nil:
		return token, fmt.Errorf("cache error: %w", err)
	}

	if err := json.Unmarshal(data, &token); err != nil {
		return token, fmt.Errorf("cache decode error: %w", err)
	}

	return token, nil
}

func (c *TokenCache) SetToken(ctx context.Context, token models.RefreshToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("cache encode error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.redis.Set(ctx, tokenKey(token.Token), data, c.tokenTTL).Err(); err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	return nil
}

func (c *TokenCache) RemoveToken(ctx context.Context, tokenValue string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.redis.Del(ctx, tokenKey(tokenValue)).Err(); err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	return nil
}

// GetValid returns the memoized validity answer for the pair or ErrCacheMiss
func (c *TokenCache) GetValid(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	valid, err := c.redis.Get(ctx, sessionKey(userID, sessionID)).Bool()
	switch {
	case errors.Is(err, redis.Nil):
		return false, ErrCacheMiss
	case err != nil:
		return false, fmt.Errorf("cache error: %w", err)
	}

	return valid, nil
}

func (c *TokenCache) SetValid(ctx context.Context, userID uuid.UUID, sessionID string, valid bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.redis.Set(ctx, sessionKey(userID, sessionID), valid, c.sessionTTL).Err(); err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	return nil
}

func (c *TokenCache) RemoveValid(ctx context.Context, userID uuid.UUID, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.redis.Del(ctx, sessionKey(userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("cache error: %w", err)
	}

	return nil
}
