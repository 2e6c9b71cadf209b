package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/security-core/internal/api/handler"
	"github.com/opsdesk/security-core/internal/core/domain"
)

type forbiddenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RBAC enforces role-based access control. The principal set by Auth passes
// when its primary role or any of its access roles is allowed.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, _ := c.Get(handler.CtxPrincipal).(*domain.Principal)
			if principal == nil || !principal.HasAnyRole(allowedRoles...) {
				return c.JSON(http.StatusForbidden, forbiddenResponse{
					Success: false,
					Message: "Access denied. Required role: " + joinRoles(allowedRoles),
				})
			}
			return next(c)
		}
	}
}

func joinRoles(roles []domain.Role) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += string(r)
	}
	return out
}
