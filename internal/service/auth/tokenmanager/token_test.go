package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/models"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	testUser := models.User{
		ID:             uuid.New(),
		CreatedAt:      mustParseTime("2024-01-01 19:00:01Z"),
		Username:       "testuser",
		DisplayName:    "Test User",
		HashedPassword: "hashed_password",
	}

	newManager := func(t *testing.T, accessTTL time.Duration, refreshTTL time.Duration) *TokenManager {
		m, err := New(Config{
			SecretKey:  "test-secret-key",
			ClientID:   "wordvault-app",
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("fail without secret key", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err, "empty secret key must not be accepted")
	})

	t.Run("GeneratePair", func(t *testing.T) {
		t.Run("return token pair and refresh row", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 7*24*time.Hour)

			pair, refresh, err := m.GeneratePair(testUser, "session-1")

			require.NoError(t, err)
			assert.NotEmpty(t, pair.Access.Value, "access token should not be empty")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.Access.ExpiresAt, time.Second)
			assert.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
			assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), pair.Refresh.ExpiresAt, time.Second)
			assert.Equal(t, "session-1", pair.SessionID)

			assert.Equal(t, pair.Refresh.Value, refresh.Token, "refresh row must hold the signed string")
			assert.Equal(t, testUser.ID, refresh.UserID)
			assert.Equal(t, "session-1", refresh.SessionID)
			assert.False(t, refresh.Revoked, "fresh refresh token must not be revoked")
			assert.NotEqual(t, uuid.Nil, refresh.ID, "refresh row id should be set")
		})

		t.Run("access claims", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 7*24*time.Hour)

			pair, _, err := m.GeneratePair(testUser, "session-1")
			require.NoError(t, err)

			token, err := jwt.ParseWithClaims(pair.Access.Value, &Claims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-secret-key"), nil
			})
			require.NoError(t, err)
			require.True(t, token.Valid, "access token should be valid")

			claims, ok := token.Claims.(*Claims)
			require.True(t, ok, "claims should be of type Claims")
			assert.Equal(t, testUser.ID.String(), claims.Subject, "subject should be the user id")
			assert.Equal(t, "Test User", claims.Name)
			assert.Equal(t, "session-1", claims.SessionID)
			assert.Equal(t, "wordvault-app", claims.ClientID)
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
		})

		t.Run("generate different tokens", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 7*24*time.Hour)

			pair1, _, err := m.GeneratePair(testUser, "session-1")
			require.NoError(t, err)
			pair2, _, err := m.GeneratePair(testUser, "session-1")
			require.NoError(t, err)

			assert.NotEqual(t, pair1.Refresh.Value, pair2.Refresh.Value, "refresh tokens should be different")
			assert.NotEqual(t, pair1.Access.Value, pair2.Access.Value, "access tokens should be different")
		})
	})

	t.Run("ParseClaims", func(t *testing.T) {
		t.Run("round trip", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 7*24*time.Hour)

			access, err := m.MintAccess(testUser, "session-1")
			require.NoError(t, err)

			claims, err := m.ParseClaims(access.Value)

			require.NoError(t, err)
			userID, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, testUser.ID, userID)
			assert.Equal(t, "session-1", claims.SessionID)
		})

		t.Run("accepts expired token", func(t *testing.T) {
			m := newManager(t, -time.Minute, 7*24*time.Hour)

			access, err := m.MintAccess(testUser, "session-1")
			require.NoError(t, err)

			claims, err := m.ParseClaims(access.Value)

			require.NoError(t, err, "expired token must still parse, expiry is the caller's question")
			assert.True(t, claims.Expired(time.Now()), "claims should report expiry")
		})

		t.Run("fail on garbage", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 7*24*time.Hour)

			_, err := m.ParseClaims("not-a-token")

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrMalformedToken)
		})

		t.Run("fail on wrong key", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 7*24*time.Hour)
			other, err := New(Config{SecretKey: "other-key"})
			require.NoError(t, err)

			access, err := other.MintAccess(testUser, "session-1")
			require.NoError(t, err)

			_, err = m.ParseClaims(access.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrMalformedToken)
		})
	})

	t.Run("VerifyAccess", func(t *testing.T) {
		t.Run("valid token ok", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 7*24*time.Hour)

			access, err := m.MintAccess(testUser, "session-1")
			require.NoError(t, err)

			_, err = m.VerifyAccess(access.Value)
			require.NoError(t, err)
		})

		t.Run("fail on expired token", func(t *testing.T) {
			m := newManager(t, -time.Minute, 7*24*time.Hour)

			access, err := m.MintAccess(testUser, "session-1")
			require.NoError(t, err)

			_, err = m.VerifyAccess(access.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrMalformedToken)
		})
	})

	t.Run("Claims UserID", func(t *testing.T) {
		tests := []struct {
			name    string
			subject string
			wantErr bool
		}{
			{name: "valid uuid", subject: testUser.ID.String(), wantErr: false},
			{name: "empty subject", subject: "", wantErr: true},
			{name: "not a uuid", subject: "user-42", wantErr: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: tt.subject}}

				_, err := claims.UserID()

				if tt.wantErr {
					require.Error(t, err)
					require.ErrorIs(t, err, apperrors.ErrMalformedToken)
					return
				}
				require.NoError(t, err)
			})
		}
	})
}
