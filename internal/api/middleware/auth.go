package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/security-core/internal/api/handler"
	"github.com/opsdesk/security-core/internal/core/domain"
)

// TokenVerifier resolves a session token to the current principal.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.Principal, error)
}

// Auth validates the bearer token against the current principal state and
// injects the principal, its role and employee ID into the context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := verifier.VerifyToken(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				return err
			}

			c.Set(handler.CtxPrincipal, principal)
			c.Set(handler.CtxRole, string(principal.Role))
			c.Set(handler.CtxEmployeeID, principal.EmployeeID)

			return next(c)
		}
	}
}
