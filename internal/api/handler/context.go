package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/security-core/internal/core/domain"
)

// Context keys populated by the Auth middleware.
const (
	CtxPrincipal  = "principal"
	CtxRole       = "role"
	CtxEmployeeID = "employee_id"
)

// ctxPrincipal extracts the principal injected by the Auth middleware. Its
// absence means the route was mounted without authentication.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p, _ := c.Get(CtxPrincipal).(*domain.Principal)
	if p == nil || p.EmployeeID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
