package domain

import (
	"context"
	"time"
)

// Session records one successful login. Rows are written once and never
// mutated; expiry is governed by the token lifetime, not the row.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository persists session records for later inspection.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	ListRecent(ctx context.Context, limit int) ([]*Session, error)
}
