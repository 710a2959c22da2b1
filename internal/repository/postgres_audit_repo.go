package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fleetgrid/fleetgate/internal/domain"
)

// PostgresAuditRepo implements domain.AuditRepository using PostgreSQL. The
// audit_events table is append-only; there are no update or delete paths.
type PostgresAuditRepo struct {
	db *sql.DB
}

func NewPostgresAuditRepo(db *sql.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

// Insert persists one audit event and fills in its generated id. The write is
// awaited by callers: a login or logout must not complete without its trail.
func (r *PostgresAuditRepo) Insert(ctx context.Context, ev *domain.AuditEvent) error {
	details := ev.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding audit details: %w", err)
	}

	// actor_id is NULL for unauthenticated failures.
	var actor sql.NullInt64
	if ev.ActorID != nil {
		actor.Int64 = *ev.ActorID
		actor.Valid = true
	}

	query := `
		INSERT INTO audit_events (event_type, actor_id, resource_type, resource_id, action, details, severity, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		ev.EventType,
		actor,
		ev.ResourceType,
		ev.ResourceID,
		ev.Action,
		detailsJSON,
		ev.Severity,
		ev.IPAddress,
		ev.UserAgent,
		ev.CreatedAt,
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}
