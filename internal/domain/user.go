package domain

//go:generate mockgen -destination=../mocks/mock_domain.go -package=mocks github.com/fleetgrid/fleetgate/internal/domain UserRepository,SessionRepository,AuditRepository,AttemptTracker,TokenDenylist

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleManager       Role = "manager"
	RoleUser          Role = "user"
	RoleGuest         Role = "guest"
)

// rolePermissions is the fixed role-to-permission mapping. Permissions are
// derived from the role claim, never stored per user.
var rolePermissions = map[Role][]string{
	RoleAdministrator: {"users:read", "users:write", "targets:read", "targets:write", "jobs:read", "jobs:write", "sessions:read", "audit:read"},
	RoleManager:       {"targets:read", "targets:write", "jobs:read", "jobs:write", "sessions:read"},
	RoleUser:          {"targets:read", "jobs:read"},
	RoleGuest:         {},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns the permission set granted by the role. Unknown roles
// get no permissions.
func (r Role) Permissions() []string {
	return rolePermissions[r]
}

// HasPermission reports whether the role grants the given permission.
func (r Role) HasPermission(perm string) bool {
	for _, p := range rolePermissions[r] {
		if p == perm {
			return true
		}
	}
	return false
}

// User represents the central identity entity of the system.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose the password hash in JSON
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserRepository defines the contract for user persistence. This service only
// reads users and touches last_login; provisioning lives elsewhere.
type UserRepository interface {
	// GetByLogin resolves a user by username or email address.
	GetByLogin(ctx context.Context, login string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
