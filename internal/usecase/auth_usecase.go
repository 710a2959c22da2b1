package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fleetgrid/fleetgate/internal/domain"
	"github.com/fleetgrid/fleetgate/pkg/security"
)

var (
	// ErrInvalidCredentials is returned for unknown users, wrong passwords
	// and inactive accounts alike, so responses never reveal which it was.
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrInvalidToken           = errors.New("invalid_token")
	ErrUserNotFound           = errors.New("user_not_found")
	ErrUserNotFoundOrInactive = errors.New("user_not_found_or_inactive")
)

// ClientInfo carries the request metadata every security decision is keyed or
// audited by.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// AuthUsecase sequences credential verification, brute-force tracking, audit
// emission and token issuance. Each call runs to completion independently;
// the attempt tracker is the only state shared across requests.
type AuthUsecase struct {
	users      domain.UserRepository
	sessions   domain.SessionRepository
	audit      domain.AuditRepository
	attempts   domain.AttemptTracker
	denylist   domain.TokenDenylist
	tokens     *security.TokenManager
	classifier *SeverityClassifier
	logger     *slog.Logger
}

func NewAuthUsecase(
	users domain.UserRepository,
	sessions domain.SessionRepository,
	audit domain.AuditRepository,
	attempts domain.AttemptTracker,
	denylist domain.TokenDenylist,
	tokens *security.TokenManager,
	classifier *SeverityClassifier,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:      users,
		sessions:   sessions,
		audit:      audit,
		attempts:   attempts,
		denylist:   denylist,
		tokens:     tokens,
		classifier: classifier,
		logger:     logger,
	}
}

// Login verifies the credentials and either records the failure or opens a
// session and issues a token pair.
func (u *AuthUsecase) Login(ctx context.Context, username, password string, client ClientInfo) (*domain.AuthResponse, error) {
	user, err := u.users.GetByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn the same hashing work as a real comparison so the
			// unknown-user path is not measurably faster.
			security.CompareDummy(password)
			return nil, u.rejectLogin(ctx, username, client)
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	match, err := security.ComparePassword(password, user.PasswordHash)
	if err != nil || !match || !user.IsActive {
		return nil, u.rejectLogin(ctx, username, client)
	}

	// Success path, in order: clear counter, stamp last_login, record the
	// session, write the audit trail, then issue tokens.
	if err := u.attempts.Clear(ctx, client.IPAddress); err != nil {
		u.logger.Warn("failed-attempt store unreachable on clear",
			"addr", client.IPAddress, "error", err)
	}

	now := time.Now()
	if err := u.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("stamping last login: %w", err)
	}

	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: now,
	}
	if err := u.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("recording session: %w", err)
	}

	actor := user.ID
	ev := &domain.AuditEvent{
		EventType:    domain.EventUserLogin,
		ActorID:      &actor,
		ResourceType: "user",
		ResourceID:   strconv.FormatInt(user.ID, 10),
		Action:       "login",
		Details:      map[string]any{"session_id": sess.ID},
		Severity:     domain.SeverityLow,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		CreatedAt:    now,
	}
	if err := u.audit.Insert(ctx, ev); err != nil {
		return nil, fmt.Errorf("recording login audit event: %w", err)
	}

	return u.issuePair(user)
}

// rejectLogin runs the failure sequence: count the attempt, grade it, write
// the audit trail, and hand back the uniform credential error. An audit-store
// failure outranks the credential error; a login attempt must never pass
// silently unrecorded.
func (u *AuthUsecase) rejectLogin(ctx context.Context, username string, client ClientInfo) error {
	count, err := u.attempts.Increment(ctx, client.IPAddress)
	if err != nil {
		// Fail open: losing the counter degrades brute-force detection but
		// must not block authentication outright.
		u.logger.Warn("failed-attempt store unreachable, assuming no prior failures",
			"addr", client.IPAddress, "error", err)
		count = 1
	}

	severity, action := u.classifier.Classify(count)
	ev := &domain.AuditEvent{
		EventType:    domain.EventSecurityViolation,
		ActorID:      nil, // actor unknown until credentials check out
		ResourceType: "auth",
		ResourceID:   client.IPAddress,
		Action:       action,
		Details: map[string]any{
			"username":              username,
			"failed_attempts_count": count,
			"potential_brute_force": action == ActionPotentialBruteForce,
		},
		Severity:  severity,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: time.Now(),
	}
	if err := u.audit.Insert(ctx, ev); err != nil {
		return fmt.Errorf("recording security event: %w", err)
	}

	return ErrInvalidCredentials
}

// Logout audits the end of a session and revokes the access token for its
// remaining lifetime. The claims arrive pre-verified from the JWT middleware.
func (u *AuthUsecase) Logout(ctx context.Context, claims *security.Claims, client ClientInfo) error {
	now := time.Now()
	var durationSecs int64
	if claims.IssuedAt != nil {
		durationSecs = int64(now.Sub(claims.IssuedAt.Time).Seconds())
	}

	actor := claims.UserID
	ev := &domain.AuditEvent{
		EventType:    domain.EventUserLogout,
		ActorID:      &actor,
		ResourceType: "user",
		ResourceID:   strconv.FormatInt(claims.UserID, 10),
		Action:       "logout",
		Details:      map[string]any{"session_duration_seconds": durationSecs},
		Severity:     domain.SeverityLow,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		CreatedAt:    now,
	}
	if err := u.audit.Insert(ctx, ev); err != nil {
		return fmt.Errorf("recording logout audit event: %w", err)
	}

	if claims.ExpiresAt != nil {
		if err := u.denylist.Add(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			// Logout still succeeds; the token just rides out its natural
			// expiry, which is the pre-denylist behavior.
			u.logger.Warn("token denylist unreachable on logout",
				"jti", claims.ID, "error", err)
		}
	}
	return nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The password is
// not re-checked, but the user must still exist and be active.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*domain.AuthResponse, error) {
	claims, err := u.tokens.Verify(refreshToken, security.TokenKindRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if denied, err := u.denylist.Contains(ctx, claims.ID); err != nil {
		u.logger.Warn("token denylist unreachable on refresh", "jti", claims.ID, "error", err)
	} else if denied {
		return nil, ErrInvalidToken
	}

	user, err := u.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFoundOrInactive
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserNotFoundOrInactive
	}

	actor := user.ID
	ev := &domain.AuditEvent{
		EventType:    domain.EventTokenRefresh,
		ActorID:      &actor,
		ResourceType: "user",
		ResourceID:   strconv.FormatInt(user.ID, 10),
		Action:       "token_refresh",
		Severity:     domain.SeverityLow,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		CreatedAt:    time.Now(),
	}
	if err := u.audit.Insert(ctx, ev); err != nil {
		return nil, fmt.Errorf("recording refresh audit event: %w", err)
	}

	return u.issuePair(user)
}

// Me returns the profile for a verified access token's user.
func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return user, nil
}

// RecentSessions lists the newest session records for inspection.
func (u *AuthUsecase) RecentSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return u.sessions.ListRecent(ctx, limit)
}

func (u *AuthUsecase) issuePair(user *domain.User) (*domain.AuthResponse, error) {
	access, err := u.tokens.Issue(user.Username, user.ID, string(user.Role), security.TokenKindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := u.tokens.Issue(user.Username, user.ID, string(user.Role), security.TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	return &domain.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(u.tokens.AccessTTL().Seconds()),
		User: domain.UserInfo{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
			IsActive: user.IsActive,
		},
	}, nil
}
