package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/core/ports"
)

// SecurityHandler serves the privileged security reporting endpoints.
type SecurityHandler struct {
	reports ports.SecurityReportService
}

func NewSecurityHandler(reports ports.SecurityReportService) *SecurityHandler {
	return &SecurityHandler{reports: reports}
}

type auditLogResponse struct {
	Success bool                  `json:"success"`
	Count   int                   `json:"count"`
	Logs    []domain.LoginAttempt `json:"logs"`
}

type alertsResponse struct {
	Success bool                   `json:"success"`
	Count   int                    `json:"count"`
	Alerts  []domain.SecurityAlert `json:"alerts"`
}

type statsResponse struct {
	Success bool                 `json:"success"`
	Stats   domain.SecurityStats `json:"stats"`
}

type failedAttemptsResponse struct {
	Success   bool                  `json:"success"`
	IPAddress string                `json:"ipAddress"`
	Hours     int                   `json:"hours"`
	Count     int                   `json:"count"`
	Attempts  []domain.LoginAttempt `json:"attempts"`
}

type dashboardResponse struct {
	Success   bool                     `json:"success"`
	Dashboard domain.SecurityDashboard `json:"dashboard"`
}

// AuditLog returns the most recent login attempts.
//
// @Summary      Recent login attempts
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum entries (default 100)"
// @Success      200    {object}  auditLogResponse
// @Failure      400    {object}  messageResponse
// @Failure      401    {object}  messageResponse
// @Failure      403    {object}  messageResponse
// @Router       /api/security/audit-log [get]
func (h *SecurityHandler) AuditLog(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	logs := h.reports.RecentAttempts(c.Request().Context(), limit)
	return c.JSON(http.StatusOK, auditLogResponse{Success: true, Count: len(logs), Logs: logs})
}

// Alerts returns the most recent security alerts.
//
// @Summary      Recent security alerts
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum entries (default 50)"
// @Success      200    {object}  alertsResponse
// @Failure      400    {object}  messageResponse
// @Failure      401    {object}  messageResponse
// @Failure      403    {object}  messageResponse
// @Router       /api/security/alerts [get]
func (h *SecurityHandler) Alerts(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	alerts := h.reports.SecurityAlerts(c.Request().Context(), limit)
	return c.JSON(http.StatusOK, alertsResponse{Success: true, Count: len(alerts), Alerts: alerts})
}

// Stats returns aggregates over the trailing 24 hours.
//
// @Summary      Security statistics
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /api/security/stats [get]
func (h *SecurityHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, statsResponse{Success: true, Stats: h.reports.SecurityStats(c.Request().Context())})
}

// FailedAttempts returns failed attempts from one IP address.
//
// @Summary      Failed attempts by IP
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Param        ip     path      string  true   "Client IP address"
// @Param        hours  query     int     false  "Trailing window in hours (default 24, max 720)"
// @Success      200    {object}  failedAttemptsResponse
// @Failure      400    {object}  messageResponse
// @Failure      401    {object}  messageResponse
// @Failure      403    {object}  messageResponse
// @Router       /api/security/failed-attempts/{ip} [get]
func (h *SecurityHandler) FailedAttempts(c echo.Context) error {
	ip := c.Param("ip")
	if ip == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ip is required")
	}
	hours, err := queryInt(c, "hours")
	if err != nil {
		return err
	}

	hours = domain.ClampFailedHours(hours)
	attempts := h.reports.FailedAttemptsByIP(c.Request().Context(), ip, hours)
	return c.JSON(http.StatusOK, failedAttemptsResponse{
		Success:   true,
		IPAddress: ip,
		Hours:     hours,
		Count:     len(attempts),
		Attempts:  attempts,
	})
}

// Dashboard returns stats with the latest attempts and alerts.
//
// @Summary      Security dashboard
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /api/security/dashboard [get]
func (h *SecurityHandler) Dashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, dashboardResponse{Success: true, Dashboard: h.reports.Dashboard(c.Request().Context())})
}

// queryInt parses an optional integer query parameter; absent yields 0.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}
