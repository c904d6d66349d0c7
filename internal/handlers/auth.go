package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nkiryanov/wordvault/internal/apperrors"
	"github.com/nkiryanov/wordvault/internal/handlers/middleware"
	"github.com/nkiryanov/wordvault/internal/handlers/render"
	"github.com/nkiryanov/wordvault/internal/handlers/userctx"
	"github.com/nkiryanov/wordvault/internal/logger"
	"github.com/nkiryanov/wordvault/internal/models"
)

// Token pair as the client receives it
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

func newTokenPairResponse(pair models.TokenPair, expiresIn int64) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		ExpiresIn:    expiresIn,
		SessionID:    pair.SessionID,
	}
}

// sessionID reads the client supplied session identifier header
func sessionID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(middleware.SessionHeader))
	return id, id != ""
}

func handleRegister(as authService, logger logger.Logger) http.Handler {
	type RegisterRequest struct {
		Username    string `json:"username" validate:"required,min=2,max=50"`
		DisplayName string `json:"display_name" validate:"max=150"`
		Password    string `json:"password" validate:"required,min=8"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[RegisterRequest](w, r)
		if err != nil {
			return
		}

		session, ok := sessionID(r)
		if !ok {
			render.ServiceError(w, "Session id header is required", http.StatusBadRequest)
			return
		}

		pair, err := as.Register(r.Context(), data.Username, data.DisplayName, data.Password, session)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			default:
				logger.Error("Failed to register user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newTokenPairResponse(pair, int64(as.AccessTTL().Seconds())))
	})
}

func handleLogin(as authService, logger logger.Logger) http.Handler {
	type LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[LoginRequest](w, r)
		if err != nil {
			return
		}

		session, ok := sessionID(r)
		if !ok {
			render.ServiceError(w, "Session id header is required", http.StatusBadRequest)
			return
		}

		pair, err := as.Login(r.Context(), data.Username, data.Password, session)
		if err != nil {
			switch {
			case apperrors.IsUnauthorized(err):
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			default:
				logger.Error("Failed to login user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newTokenPairResponse(pair, int64(as.AccessTTL().Seconds())))
	})
}

func handleTokenRefresh(as authService, logger logger.Logger) http.Handler {
	type RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[RefreshRequest](w, r)
		if err != nil {
			return
		}

		session, ok := sessionID(r)
		if !ok {
			render.ServiceError(w, "Session id header is required", http.StatusBadRequest)
			return
		}

		pair, err := as.RefreshPair(r.Context(), data.RefreshToken, session)
		if err != nil {
			switch {
			case apperrors.IsUnauthorized(err):
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				logger.Error("Failed to refresh tokens", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newTokenPairResponse(pair, int64(as.AccessTTL().Seconds())))
	})
}

func handleLogout(as authService, logger logger.Logger) http.Handler {
	type LogoutResponse struct {
		Revoked int64 `json:"revoked"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		affected, err := as.RevokeSession(r.Context(), session.UserID, session.SessionID)
		if err != nil {
			logger.Error("Failed to revoke session", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, LogoutResponse{Revoked: affected})
	})
}

func handleMe(as authService, logger logger.Logger) http.Handler {
	type MeResponse struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		SessionID   string `json:"session_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := as.GetUser(r.Context(), session.UserID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				logger.Error("Failed to load user", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, MeResponse{
			ID:          user.ID.String(),
			Username:    user.Username,
			DisplayName: user.DisplayName,
			SessionID:   session.SessionID,
		})
	})
}
