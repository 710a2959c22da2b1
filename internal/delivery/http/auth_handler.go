package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fleetgrid/fleetgate/internal/domain"
	"github.com/fleetgrid/fleetgate/internal/usecase"
	"github.com/fleetgrid/fleetgate/pkg/security"
)

// AuthService is what the delivery layer needs from the auth orchestrator.
type AuthService interface {
	Login(ctx context.Context, username, password string, client usecase.ClientInfo) (*domain.AuthResponse, error)
	Logout(ctx context.Context, claims *security.Claims, client usecase.ClientInfo) error
	Refresh(ctx context.Context, refreshToken string, client usecase.ClientInfo) (*domain.AuthResponse, error)
	Me(ctx context.Context, userID int64) (*domain.User, error)
	RecentSessions(ctx context.Context, limit int) ([]*domain.Session, error)
}

// AuthHandler represents the HTTP delivery layer for authentication.
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler registers the authentication routes on the provided group.
// authMW must be the JWT middleware guarding the token-bearing routes.
func NewAuthHandler(g *echo.Group, svc AuthService, authMW echo.MiddlewareFunc) {
	h := &AuthHandler{svc: svc}

	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout, authMW)
	g.GET("/me", h.Me, authMW)
	g.GET("/sessions", h.Sessions, authMW, RequirePermission("sessions:read"))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func clientInfo(c echo.Context) usecase.ClientInfo {
	return usecase.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// Login handles credential authentication. Failures carry one fixed message
// whatever the cause, so responses never betray whether the username exists.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	resp, err := h.svc.Login(c.Request().Context(), req.Username, req.Password, clientInfo(c))
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or password"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, resp)
}

// Logout ends the session behind the bearer token. The JWT middleware has
// already verified it.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := c.Get(claimsKey).(*security.Claims)

	if err := h.svc.Logout(c.Request().Context(), claims, clientInfo(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Refresh exchanges a refresh token for a new pair. The token is read from
// the Authorization header, with the JSON body as a fallback.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, ok := bearerToken(c)
	if !ok {
		var req refreshRequest
		if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
		}
		token = req.RefreshToken
	}

	resp, err := h.svc.Refresh(c.Request().Context(), token, clientInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidToken):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
		case errors.Is(err, usecase.ErrUserNotFoundOrInactive):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user_not_found_or_inactive"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	claims := c.Get(claimsKey).(*security.Claims)

	user, err := h.svc.Me(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, user)
}

// Sessions lists recent login sessions. Gated on the sessions:read permission.
func (h *AuthHandler) Sessions(c echo.Context) error {
	// Bad limit values fall through to the usecase default.
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	sessions, err := h.svc.RecentSessions(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}
