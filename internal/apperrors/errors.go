package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token is revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	// Token string that can't be parsed: bad signature or broken claim structure
	ErrMalformedToken = errors.New("malformed token")

	ErrSessionMissing = errors.New("missing session")
	ErrInvalidClient  = errors.New("invalid client")
	ErrInvalidSubject = errors.New("invalid subject")
	ErrInvalidSession = errors.New("invalid session")
)

// IsUnauthorized reports whether err must be answered with 401 and nothing else.
// Every token or session failure fails closed.
func IsUnauthorized(err error) bool {
	for _, target := range []error{
		ErrInvalidCredentials,
		ErrRefreshTokenNotFound,
		ErrRefreshTokenRevoked,
		ErrRefreshTokenExpired,
		ErrMalformedToken,
		ErrSessionMissing,
		ErrInvalidClient,
		ErrInvalidSubject,
		ErrInvalidSession,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
