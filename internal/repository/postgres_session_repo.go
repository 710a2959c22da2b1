package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fleetgrid/fleetgate/internal/domain"
)

// PostgresSessionRepo implements domain.SessionRepository using PostgreSQL.
type PostgresSessionRepo struct {
	db *sql.DB
}

func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create inserts one session row. Sessions are written once per successful
// login and never updated.
func (r *PostgresSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.IPAddress, s.UserAgent, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// ListRecent returns the newest sessions, most recent first.
func (r *PostgresSessionRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Session, error) {
	query := `
		SELECT id, user_id, ip_address, user_agent, created_at
		FROM sessions
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s := &domain.Session{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
