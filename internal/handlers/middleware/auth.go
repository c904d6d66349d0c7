package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/handlers/render"
	"github.com/nkiryanov/wordvault/internal/handlers/userctx"
	"github.com/nkiryanov/wordvault/internal/service/auth/tokenmanager"
)

const (
	// Header the client asserts its login session in
	SessionHeader = "X-Session-Id"

	authHeader = "Authorization"
	authScheme = "Bearer"
)

type accessVerifier interface {
	ParseAccessClaims(tokenString string) (tokenmanager.Claims, error)
}

type sessionValidator interface {
	ValidateSession(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error)
}

// Auth is the per-request gate in front of every protected operation.
// It verifies the bearer access token, then checks what the signature alone
// cannot express: the session header is present, the client claim is
// recognized, the subject parses, and the session still has a live refresh
// token behind it. Read only: it never mutates the store, only warms its cache.
func Auth(verifier accessVerifier, validator sessionValidator, allowedClients []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Signature and expiry check comes first, the gate adds the rest
			claims, err := verifier.ParseAccessClaims(access)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sessionID == "" {
				unauthorized(w, apperrors.ErrSessionMissing)
				return
			}

			if !slices.Contains(allowedClients, claims.ClientID) {
				unauthorized(w, apperrors.ErrInvalidClient)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				unauthorized(w, apperrors.ErrInvalidSubject)
				return
			}

			valid, err := validator.ValidateSession(r.Context(), userID, sessionID)
			if err != nil {
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !valid {
				unauthorized(w, apperrors.ErrInvalidSession)
				return
			}

			ctx := userctx.New(r.Context(), userctx.Session{
				UserID:      userID,
				SessionID:   sessionID,
				DisplayName: claims.Name,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorized renders a 401 naming the sentinel the gate tripped on
func unauthorized(w http.ResponseWriter, err error) {
	render.ServiceError(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
}

func bearerToken(r *http.Request) (string, bool) {
	value := r.Header.Get(authHeader)
	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, authScheme) || token == "" {
		return "", false
	}

	return token, true
}
