package domain

import (
	"context"
	"time"
)

// AuthResponse defines the payload returned after a successful login or
// refresh.
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         UserInfo `json:"user"`
}

// UserInfo is the safe subset of User included in auth responses.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

// AttemptTracker counts failed logins per client address in a shared store so
// detection stays correct across horizontally scaled instances. Increment must
// be atomic at the storage layer and resets the TTL window on every call.
type AttemptTracker interface {
	Increment(ctx context.Context, addr string) (int64, error)
	Clear(ctx context.Context, addr string) error
}

// TokenDenylist revokes tokens by ID until their natural expiry.
type TokenDenylist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}
