package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/wordvault/internal/handlers/middleware"
	"github.com/nkiryanov/wordvault/internal/logger"
	"github.com/nkiryanov/wordvault/internal/models"
	"github.com/nkiryanov/wordvault/internal/service/auth/tokenmanager"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type authService interface {
	// Register user and open the login session
	// Has to return apperrors.ErrUserAlreadyExists if the username is taken
	Register(ctx context.Context, username string, displayName string, password string, sessionID string) (models.TokenPair, error)

	// Login user with username and password
	// Has to return apperrors.ErrInvalidCredentials on bad credentials
	Login(ctx context.Context, username string, password string, sessionID string) (models.TokenPair, error)

	// Exchange a live refresh token for a fresh pair
	// Token failures map to apperrors sentinel errors and fail closed
	RefreshPair(ctx context.Context, refreshValue string, sessionID string) (models.TokenPair, error)

	// Revoke every live token of the session, return affected row count
	RevokeSession(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error)

	// Liveness answer for the request gate
	ValidateSession(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error)

	// Fully verify a bearer access token string
	ParseAccessClaims(tokenString string) (tokenmanager.Claims, error)

	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)

	AccessTTL() time.Duration
}

func NewRouter(as authService, allowedClients []string, logger logger.Logger) http.Handler {
	authMiddleware := middleware.Auth(as, as, allowedClients)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	api := http.NewServeMux()

	api.Handle("POST /auth/register", handleRegister(as, logger))
	api.Handle("POST /auth/login", handleLogin(as, logger))
	api.Handle("POST /auth/refresh", handleTokenRefresh(as, logger))
	api.Handle("POST /auth/logout", withAuth(handleLogout(as, logger)))

	api.Handle("GET /me", withAuth(handleMe(as, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.Logger(logger),
	)

	return handler
}
