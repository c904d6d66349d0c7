package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager and AuthService
type TokenPair struct {
	Access    IssuedToken
	Refresh   IssuedToken
	SessionID string
}
