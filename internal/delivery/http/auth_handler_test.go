package http_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	delivery "github.com/fleetgrid/fleetgate/internal/delivery/http"
	"github.com/fleetgrid/fleetgate/internal/domain"
	"github.com/fleetgrid/fleetgate/internal/mocks"
	"github.com/fleetgrid/fleetgate/internal/usecase"
	"github.com/fleetgrid/fleetgate/pkg/security"
)

const testPassword = "correct horse battery staple"

type deps struct {
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionRepository
	audit    *mocks.MockAuditRepository
	attempts *mocks.MockAttemptTracker
	denylist *mocks.MockTokenDenylist
	tokens   *security.TokenManager
}

func newTestServer(t *testing.T) (*echo.Echo, deps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	d := deps{
		users:    mocks.NewMockUserRepository(ctrl),
		sessions: mocks.NewMockSessionRepository(ctrl),
		audit:    mocks.NewMockAuditRepository(ctrl),
		attempts: mocks.NewMockAttemptTracker(ctrl),
		denylist: mocks.NewMockTokenDenylist(ctrl),
		tokens:   security.NewTokenManager("test-secret", "fleetgate", time.Hour, 24*time.Hour),
	}

	classifier, err := usecase.NewSeverityClassifier(5, 10)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	uc := usecase.NewAuthUsecase(d.users, d.sessions, d.audit, d.attempts, d.denylist, d.tokens, classifier, logger)

	e := echo.New()
	authMW := delivery.JWTMiddleware(d.tokens, d.denylist, logger)
	delivery.NewAuthHandler(e.Group("/auth"), uc, authMW)
	return e, d
}

func testUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := security.HashPassword(testPassword)
	require.NoError(t, err)
	return &domain.User{
		ID:           7,
		Username:     "alice",
		Email:        "alice@fleetgrid.io",
		PasswordHash: hash,
		Role:         domain.RoleManager,
		IsActive:     true,
	}
}

func doRequest(e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint_Success(t *testing.T) {
	e, d := newTestServer(t)
	user := testUser(t)

	d.users.EXPECT().GetByLogin(gomock.Any(), "alice").Return(user, nil)
	d.attempts.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
	d.users.EXPECT().UpdateLastLogin(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	d.sessions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.audit.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	rec := doRequest(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"`+testPassword+`"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, domain.UserInfo{ID: 7, Username: "alice", Role: domain.RoleManager, IsActive: true}, resp.User)

	// The password hash must never leave the server.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "argon2id")
}

// Unknown user and wrong password must be byte-identical on the wire.
func TestLoginEndpoint_UniformFailure(t *testing.T) {
	e, d := newTestServer(t)
	user := testUser(t)

	d.users.EXPECT().GetByLogin(gomock.Any(), "ghost").Return(nil, domain.ErrNotFound)
	d.attempts.EXPECT().Increment(gomock.Any(), gomock.Any()).Return(int64(1), nil)
	d.audit.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	unknown := doRequest(e, http.MethodPost, "/auth/login",
		`{"username":"ghost","password":"whatever"}`, "")

	d.users.EXPECT().GetByLogin(gomock.Any(), "alice").Return(user, nil)
	d.attempts.EXPECT().Increment(gomock.Any(), gomock.Any()).Return(int64(2), nil)
	d.audit.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	wrong := doRequest(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrong"}`, "")

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.Bytes(), wrong.Body.Bytes())
}

func TestLoginEndpoint_BadBody(t *testing.T) {
	e, _ := newTestServer(t)

	for _, body := range []string{"", `{}`, `{"username":"alice"}`, `not json`} {
		rec := doRequest(e, http.MethodPost, "/auth/login", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body=%q", body)
	}
}

func TestLoginEndpoint_AuditStoreDown(t *testing.T) {
	e, d := newTestServer(t)

	d.users.EXPECT().GetByLogin(gomock.Any(), "alice").Return(nil, domain.ErrNotFound)
	d.attempts.EXPECT().Increment(gomock.Any(), gomock.Any()).Return(int64(1), nil)
	d.audit.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	rec := doRequest(e, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrong"}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	e, d := newTestServer(t)

	token, err := d.tokens.Issue("alice", 7, "manager", security.TokenKindAccess)
	require.NoError(t, err)

	d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(false, nil) // middleware
	d.audit.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	d.denylist.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	rec := doRequest(e, http.MethodPost, "/auth/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"logged out"}`, rec.Body.String())
}

func TestLogoutEndpoint_MissingOrBadToken(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodPost, "/auth/logout", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_token"}`, rec.Body.String())
}

func TestRefreshEndpoint(t *testing.T) {
	e, d := newTestServer(t)
	user := testUser(t)

	refresh, err := d.tokens.Issue(user.Username, user.ID, string(user.Role), security.TokenKindRefresh)
	require.NoError(t, err)

	d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(false, nil)
	d.users.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	d.audit.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	rec := doRequest(e, http.MethodPost, "/auth/refresh",
		`{"refresh_token":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	claims, err := d.tokens.Verify(resp.AccessToken, security.TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestRefreshEndpoint_Errors(t *testing.T) {
	e, d := newTestServer(t)
	user := testUser(t)
	user.IsActive = false

	t.Run("garbage token", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/auth/refresh",
			`{"refresh_token":"garbage"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid_token"}`, rec.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/auth/refresh", `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid_token"}`, rec.Body.String())
	})

	t.Run("deactivated user", func(t *testing.T) {
		refresh, err := d.tokens.Issue(user.Username, user.ID, string(user.Role), security.TokenKindRefresh)
		require.NoError(t, err)

		d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(false, nil)
		d.users.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		rec := doRequest(e, http.MethodPost, "/auth/refresh",
			`{"refresh_token":"`+refresh+`"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"user_not_found_or_inactive"}`, rec.Body.String())
	})
}

func TestMeEndpoint(t *testing.T) {
	e, d := newTestServer(t)
	user := testUser(t)

	token, err := d.tokens.Issue(user.Username, user.ID, string(user.Role), security.TokenKindAccess)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(false, nil)
		d.users.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		rec := doRequest(e, http.MethodGet, "/auth/me", "", token)
		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, float64(7), got["id"])
		assert.Equal(t, "alice", got["username"])
		assert.Equal(t, "alice@fleetgrid.io", got["email"])
		assert.Equal(t, "manager", got["role"])
		assert.Equal(t, true, got["is_active"])
		assert.NotContains(t, rec.Body.String(), "argon2id")
	})

	t.Run("expired token", func(t *testing.T) {
		expired := security.NewTokenManager("test-secret", "fleetgate", -time.Minute, -time.Minute)
		stale, err := expired.Issue(user.Username, user.ID, string(user.Role), security.TokenKindAccess)
		require.NoError(t, err)

		rec := doRequest(e, http.MethodGet, "/auth/me", "", stale)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid_token"}`, rec.Body.String())
	})

	t.Run("revoked token", func(t *testing.T) {
		d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(true, nil)

		rec := doRequest(e, http.MethodGet, "/auth/me", "", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("user row gone", func(t *testing.T) {
		d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(false, nil)
		d.users.EXPECT().GetByID(gomock.Any(), user.ID).Return(nil, domain.ErrNotFound)

		rec := doRequest(e, http.MethodGet, "/auth/me", "", token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"user_not_found"}`, rec.Body.String())
	})
}

func TestSessionsEndpoint_Permissions(t *testing.T) {
	e, d := newTestServer(t)

	t.Run("plain user is refused", func(t *testing.T) {
		token, err := d.tokens.Issue("bob", 8, string(domain.RoleUser), security.TokenKindAccess)
		require.NoError(t, err)

		d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(false, nil)

		rec := doRequest(e, http.MethodGet, "/auth/sessions", "", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("administrator may list", func(t *testing.T) {
		token, err := d.tokens.Issue("root", 1, string(domain.RoleAdministrator), security.TokenKindAccess)
		require.NoError(t, err)

		d.denylist.EXPECT().Contains(gomock.Any(), gomock.Any()).Return(false, nil)
		d.sessions.EXPECT().ListRecent(gomock.Any(), 50).Return([]*domain.Session{
			{ID: "s1", UserID: 7, IPAddress: "10.0.0.5"},
		}, nil)

		rec := doRequest(e, http.MethodGet, "/auth/sessions", "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"s1"`)
	})
}
