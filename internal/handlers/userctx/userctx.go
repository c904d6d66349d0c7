package userctx

import (
	"context"

	"github.com/google/uuid"
)

// Session is the principal the request gate attaches after all checks pass
type Session struct {
	UserID      uuid.UUID
	SessionID   string
	DisplayName string
}

type ctxKey string

const sessionKey ctxKey = "session"

// Create a new context carrying the validated session
func New(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// Extract the validated session from the context
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
