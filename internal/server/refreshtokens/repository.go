// Package refreshtokens stores the opaque refresh tokens handed out in the
// devserver's HttpOnly cookie.
package refreshtokens

import (
	"context"
	"time"
)

// RefreshToken is one issued token.
type RefreshToken struct {
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	// Find returns common.ErrorNotFound for unknown tokens.
	Find(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
}
