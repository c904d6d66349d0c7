package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/wordvault/internal/models"
	"github.com/nkiryanov/wordvault/internal/testutil"
)

func Test_TokenCache(t *testing.T) {
	t.Parallel()

	newCache := func(t *testing.T) (*TokenCache, testutil.Redis) {
		rd := testutil.StartRedis(t)
		c, err := New(rd.Client, Config{
			TokenTTL:   20 * time.Minute,
			SessionTTL: 10 * time.Minute,
		})
		require.NoError(t, err, "cache should be created without errors")
		return c, rd
	}

	token := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		SessionID: "session-1",
		Token:     "signed-token-value",
		CreatedAt: time.Now().Truncate(time.Second),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour).Truncate(time.Second),
		Revoked:   false,
	}

	t.Run("new fail without client", func(t *testing.T) {
		_, err := New(nil, Config{})
		require.Error(t, err)
	})

	t.Run("token entries", func(t *testing.T) {
		t.Run("set and get", func(t *testing.T) {
			c, _ := newCache(t)

			err := c.SetToken(t.Context(), token)
			require.NoError(t, err)

			got, err := c.GetToken(t.Context(), token.Token)

			require.NoError(t, err)
			assert.Equal(t, token.ID, got.ID)
			assert.Equal(t, token.UserID, got.UserID)
			assert.Equal(t, token.SessionID, got.SessionID)
			assert.Equal(t, token.Token, got.Token)
			assert.True(t, token.ExpiresAt.Equal(got.ExpiresAt), "expiry must survive the round trip")
		})

		t.Run("miss on unknown value", func(t *testing.T) {
			c, _ := newCache(t)

			_, err := c.GetToken(t.Context(), "never-cached")

			require.Error(t, err)
			require.ErrorIs(t, err, ErrCacheMiss)
		})

		t.Run("remove", func(t *testing.T) {
			c, _ := newCache(t)
			require.NoError(t, c.SetToken(t.Context(), token))

			err := c.RemoveToken(t.Context(), token.Token)
			require.NoError(t, err)

			_, err = c.GetToken(t.Context(), token.Token)
			require.ErrorIs(t, err, ErrCacheMiss)
		})

		t.Run("expires after token TTL", func(t *testing.T) {
			c, rd := newCache(t)
			require.NoError(t, c.SetToken(t.Context(), token))

			rd.Mini.FastForward(20*time.Minute + time.Second)

			_, err := c.GetToken(t.Context(), token.Token)
			require.ErrorIs(t, err, ErrCacheMiss, "entry must age out after its TTL")
		})
	})

	t.Run("session validity entries", func(t *testing.T) {
		userID := uuid.New()

		t.Run("set and get both answers", func(t *testing.T) {
			for _, answer := range []bool{true, false} {
				c, _ := newCache(t)

				err := c.SetValid(t.Context(), userID, "session-1", answer)
				require.NoError(t, err)

				got, err := c.GetValid(t.Context(), userID, "session-1")

				require.NoError(t, err)
				require.Equal(t, answer, got, "memoized answer must round trip")
			}
		})

		t.Run("miss on unknown pair", func(t *testing.T) {
			c, _ := newCache(t)

			_, err := c.GetValid(t.Context(), userID, "never-seen")

			require.ErrorIs(t, err, ErrCacheMiss)
		})

		t.Run("remove", func(t *testing.T) {
			c, _ := newCache(t)
			require.NoError(t, c.SetValid(t.Context(), userID, "session-1", true))

			err := c.RemoveValid(t.Context(), userID, "session-1")
			require.NoError(t, err)

			_, err = c.GetValid(t.Context(), userID, "session-1")
			require.ErrorIs(t, err, ErrCacheMiss)
		})

		t.Run("expires after session TTL", func(t *testing.T) {
			c, rd := newCache(t)
			require.NoError(t, c.SetValid(t.Context(), userID, "session-1", true))

			rd.Mini.FastForward(10*time.Minute + time.Second)

			_, err := c.GetValid(t.Context(), userID, "session-1")
			require.ErrorIs(t, err, ErrCacheMiss, "bounded staleness: answers never outlive the TTL")
		})
	})

	t.Run("fail when redis is down", func(t *testing.T) {
		c, rd := newCache(t)
		rd.Mini.Close()

		err := c.SetToken(t.Context(), token)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrCacheMiss, "transport failure is not a miss")
	})
}
