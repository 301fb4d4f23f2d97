package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/golang-jwt/jwt/v5"
)

// TokenGenerator creates and validates access tokens.
type TokenGenerator interface {
	GenerateAccessToken(u user.User) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents JWT token claims
type Claims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Role   user.Role `json:"role"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret []byte
	AccessTokenTTL    time.Duration
	Issuer            string
}

// Session is what a successful login hands back to the caller.
type Session struct {
	User      user.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ctxKey string

const ContextUserKey ctxKey = "user"

// ContextWithUser stores the authenticated user and its id in ctx.
func ContextWithUser(ctx context.Context, u user.User) context.Context {
	ctx = internal.ContextWithUserID(ctx, u.ID)
	return context.WithValue(ctx, ContextUserKey, u)
}

func UserFromContext(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(user.User)
	return u, ok && !u.IsZero()
}

// UserIDFromContext adapts UserFromContext to handlers that only need the id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	return u.ID, ok
}
