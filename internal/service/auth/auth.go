package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/models"
	"github.com/nkiryanov/wordvault/internal/repository"
	"github.com/nkiryanov/wordvault/internal/service/auth/tokenmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during registration or login
	// If not set than bcrypt is used
	Hasher PasswordHasher
}

// AuthService composes the token codec, the durable store (usually behind the
// cache decorator) and the user repo into the login, rotation and logout flows
type AuthService struct {
	token       *tokenmanager.TokenManager
	hasher      PasswordHasher
	userRepo    repository.UserRepo
	refreshRepo repository.RefreshTokenRepo
}

func NewService(cfg Config, token *tokenmanager.TokenManager, userRepo repository.UserRepo, refreshRepo repository.RefreshTokenRepo) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	if token == nil || userRepo == nil || refreshRepo == nil {
		return nil, errors.New("token manager and repos must not be nil")
	}

	return &AuthService{
		token:       token,
		hasher:      hasher,
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
	}, nil
}

// AccessTTL returns the lifetime of issued access tokens
func (s *AuthService) AccessTTL() time.Duration {
	return s.token.AccessTTL()
}

func (s *AuthService) Register(ctx context.Context, username string, displayName string, password string, sessionID string) (models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.issuePair(ctx, user, sessionID)
}

// Login verifies credentials and opens (or reopens) the login session.
// Tokens the pair may still hold are revoked first, so a second login on the
// same session supersedes the first instead of stacking rows.
func (s *AuthService) Login(ctx context.Context, username string, password string, sessionID string) (models.TokenPair, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.TokenPair{}, apperrors.ErrInvalidCredentials
		}
		return models.TokenPair{}, fmt.Errorf("error while loading user. Err: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	return s.issuePair(ctx, user, sessionID)
}

// issuePair revokes whatever the (user, session) pair still holds, then mints
// and persists a fresh pair. After it returns the store holds exactly one
// active row for the pair.
func (s *AuthService) issuePair(ctx context.Context, user models.User, sessionID string) (models.TokenPair, error) {
	if _, err := s.refreshRepo.Revoke(ctx, user.ID, sessionID); err != nil {
		return models.TokenPair{}, fmt.Errorf("error while revoking prior session tokens. Err: %w", err)
	}

	pair, refresh, err := s.token.GeneratePair(user, sessionID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	if _, err := s.refreshRepo.Save(ctx, refresh); err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return pair, nil
}

// RefreshPair exchanges a still-active refresh token for a fresh pair and
// rotates the old row out
func (s *AuthService) RefreshPair(ctx context.Context, refreshValue string, sessionID string) (models.TokenPair, error) {
	// Signature and structure are checked before the store is asked anything.
	// The claim expiry doubles as a fast reject, the row stays authoritative.
	claims, err := s.token.ParseClaims(refreshValue)
	if err != nil {
		return models.TokenPair{}, err
	}
	if claims.Expired(time.Now()) {
		return models.TokenPair{}, fmt.Errorf("refresh rejected: %w", apperrors.ErrRefreshTokenExpired)
	}

	token, err := s.refreshRepo.GetByValue(ctx, refreshValue)
	if err != nil {
		return models.TokenPair{}, err
	}

	switch {
	case token.SessionID != sessionID:
		return models.TokenPair{}, fmt.Errorf("token belongs to another session: %w", apperrors.ErrInvalidSession)
	case token.Revoked:
		return models.TokenPair{}, fmt.Errorf("refresh rejected: %w", apperrors.ErrRefreshTokenRevoked)
	case token.ExpiresAt.Before(time.Now()):
		return models.TokenPair{}, fmt.Errorf("refresh rejected: %w", apperrors.ErrRefreshTokenExpired)
	}

	// The owning user may have vanished while the token stayed valid
	user, err := s.userRepo.GetUserByID(ctx, token.UserID)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, refresh, err := s.token.GeneratePair(user, sessionID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	if err := s.refreshRepo.Rotate(ctx, refreshValue, refresh); err != nil {
		return models.TokenPair{}, fmt.Errorf("error while rotating refresh token. Err: %w", err)
	}

	return pair, nil
}

// RevokeSession invalidates every live token of the pair and returns how many
// rows it touched
func (s *AuthService) RevokeSession(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error) {
	affected, err := s.refreshRepo.Revoke(ctx, userID, sessionID)
	if err != nil {
		return affected, fmt.Errorf("error while revoking session. Err: %w", err)
	}

	return affected, nil
}

// ValidateSession answers the request gate's liveness question, usually from
// the validation cache
func (s *AuthService) ValidateSession(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error) {
	return s.refreshRepo.Validate(ctx, userID, sessionID, time.Now())
}

// GetUser loads the user a validated request acts for
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// ParseAccessClaims fully verifies a bearer access token string
func (s *AuthService) ParseAccessClaims(tokenString string) (tokenmanager.Claims, error) {
	return s.token.VerifyAccess(tokenString)
}
