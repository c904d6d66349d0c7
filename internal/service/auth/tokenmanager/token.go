package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims carried by both access and refresh tokens. The wire format is the
// usual loose JWT claim bag; inside the app only this struct is used.
type Claims struct {
	jwt.RegisteredClaims
	Name      string `json:"name,omitempty"`
	SessionID string `json:"sid"`
	ClientID  string `json:"client,omitempty"`
}

// UserID parses the subject claim
func (c Claims) UserID() (uuid.UUID, error) {
	if c.Subject == "" {
		return uuid.Nil, fmt.Errorf("subject claim is absent: %w", apperrors.ErrMalformedToken)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject claim is not a user id: %w", apperrors.ErrMalformedToken)
	}

	return userID, nil
}

// Expired reports whether the token's expiry claim is in the past
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt == nil || c.ExpiresAt.Before(now)
}

// Token manager with sensible defaults
type Config struct {
	// Secret key to sign token payloads
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Client identifier embedded into every minted token.
	// The request gate checks it against the configured allow list.
	ClientID string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign token payloads
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Client identifier stamped into claims
	clientID string

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		clientID:   cfg.ClientID,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *TokenManager) mint(user models.User, sessionID string, now time.Time, ttl time.Duration) (string, uuid.UUID, time.Time, error) {
	id := uuid.New()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        id.String(),
				Subject:   user.ID.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Name:      user.DisplayName,
			SessionID: sessionID,
			ClientID:  m.clientID,
		},
	)

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return "", uuid.Nil, time.Time{}, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return signed, id, expiresAt, nil
}

// MintAccess issues a short lived signed access token.
// Every mint carries a fresh unique id so two tokens for the same user and
// instant never collide.
func (m *TokenManager) MintAccess(user models.User, sessionID string) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)

	signed, _, expiresAt, err := m.mint(user, sessionID, now, m.accessTTL)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// MintRefresh issues a long lived signed token and builds the row to persist.
// The row id doubles as the token's jti claim.
func (m *TokenManager) MintRefresh(user models.User, sessionID string) (models.RefreshToken, error) {
	now := time.Now().Truncate(time.Second)

	signed, id, expiresAt, err := m.mint(user, sessionID, now, m.refreshTTL)
	if err != nil {
		return models.RefreshToken{}, err
	}

	return models.RefreshToken{
		ID:        id,
		UserID:    user.ID,
		SessionID: sessionID,
		Token:     signed,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Revoked:   false,
	}, nil
}

// GeneratePair mints the access token and the refresh token row together
func (m *TokenManager) GeneratePair(user models.User, sessionID string) (models.TokenPair, models.RefreshToken, error) {
	access, err := m.MintAccess(user, sessionID)
	if err != nil {
		return models.TokenPair{}, models.RefreshToken{}, err
	}

	refresh, err := m.MintRefresh(user, sessionID)
	if err != nil {
		return models.TokenPair{}, models.RefreshToken{}, err
	}

	pair := models.TokenPair{
		Access:    access,
		Refresh:   models.IssuedToken{Value: refresh.Token, ExpiresAt: refresh.ExpiresAt},
		SessionID: sessionID,
	}

	return pair, refresh, nil
}

// ParseClaims checks the signature and claim structure only. Expired tokens
// parse fine: expiry is the caller's question, see Claims.Expired.
func (m *TokenManager) ParseClaims(tokenString string) (Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("error while parsing token: %w", apperrors.ErrMalformedToken)
	}

	return *claims, nil
}

// VerifyAccess parses and fully validates a bearer access token: signature,
// structure and expiry
func (m *TokenManager) VerifyAccess(tokenString string) (Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("error while verifying token: %w", apperrors.ErrMalformedToken)
	}

	return *claims, nil
}
