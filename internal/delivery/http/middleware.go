package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fleetgrid/fleetgate/internal/domain"
	"github.com/fleetgrid/fleetgate/pkg/security"
)

// claimsKey is the echo context key the JWT middleware stores claims under.
const claimsKey = "claims"

// JWTMiddleware validates the bearer access token and rejects revoked ones.
// Verified claims are stored in the request context for downstream handlers.
func JWTMiddleware(tokens *security.TokenManager, denylist domain.TokenDenylist, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			claims, err := tokens.Verify(raw, security.TokenKindAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			denied, err := denylist.Contains(c.Request().Context(), claims.ID)
			if err != nil {
				// Fail open: with the denylist down, tokens fall back to
				// natural expiry. Losing revocation is degraded security,
				// not an outage.
				logger.Warn("token denylist unreachable", "error", err)
			} else if denied {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// RequirePermission gates a route on the role-to-permission mapping. Must run
// after JWTMiddleware.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(claimsKey).(*security.Claims)
			if !ok || !domain.Role(claims.Role).HasPermission(perm) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient_permissions"})
			}
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
