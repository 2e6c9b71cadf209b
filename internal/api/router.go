package api

import (
	"net"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/opsdesk/security-core/docs"
	"github.com/opsdesk/security-core/internal/api/handler"
	"github.com/opsdesk/security-core/internal/api/middleware"
	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/core/ports"
)

// RouterDeps carries everything NewRouter needs. Mongo and Redis are optional
// and only used by the readiness check.
type RouterDeps struct {
	Auth    ports.AuthService
	Reports ports.SecurityReportService
	Mongo   *mongo.Database
	Redis   *redis.Client
	Log     zerolog.Logger

	// TrustedProxies lists the networks whose X-Forwarded-For header is
	// believed. Empty means the TCP peer address is the client address.
	TrustedProxies []*net.IPNet

	// Registry receives HTTP metrics and backs /metrics. Nil selects the
	// default Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = clientIPExtractor(deps.TrustedProxies)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "opsdesk_security",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	securityHandler := handler.NewSecurityHandler(deps.Reports)
	authMiddleware := middleware.Auth(deps.Auth)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout, authMiddleware)
	auth.GET("/me", authHandler.Me, authMiddleware)
	auth.POST("/change-password", authHandler.ChangePassword, authMiddleware)
	auth.GET("/verify", authHandler.Verify, authMiddleware)

	// --- Security reporting (SystemAdmin / IT only) ---
	security := e.Group("/api/security", authMiddleware, middleware.RBAC(domain.SecurityRoles...))
	security.GET("/audit-log", securityHandler.AuditLog)
	security.GET("/alerts", securityHandler.Alerts)
	security.GET("/stats", securityHandler.Stats)
	security.GET("/failed-attempts/:ip", securityHandler.FailedAttempts)
	security.GET("/dashboard", securityHandler.Dashboard)

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Mongo, deps.Redis)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// clientIPExtractor decides which address the rate limiter and audit trail
// see. Forwarding headers are ignored unless the peer is a trusted proxy.
func clientIPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// requestLogger logs one structured line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
