package domain

import (
	"context"
	"time"
)

// EventType enumerates the security-relevant event categories.
type EventType string

const (
	EventUserLogin         EventType = "user_login"
	EventUserLogout        EventType = "user_logout"
	EventTokenRefresh      EventType = "token_refresh"
	EventSecurityViolation EventType = "security_violation"
)

// Severity grades how alarming an audit event is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AuditEvent is an immutable record of a security-relevant action. ActorID is
// nil for unauthenticated failures, where the actor is unknown by definition.
type AuditEvent struct {
	ID           int64          `json:"id"`
	EventType    EventType      `json:"event_type"`
	ActorID      *int64         `json:"actor_id"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Action       string         `json:"action"`
	Details      map[string]any `json:"details"`
	Severity     Severity       `json:"severity"`
	IPAddress    string         `json:"ip_address"`
	UserAgent    string         `json:"user_agent"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditRepository is the append-only audit store. Insert must durably persist
// before returning; callers block on it.
type AuditRepository interface {
	Insert(ctx context.Context, ev *AuditEvent) error
}
