package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const readinessTimeout = 3 * time.Second

// HealthHandler serves the liveness and readiness checks. Mongo and Redis
// are nil unless the process was configured to use them.
type HealthHandler struct {
	mongo     *mongo.Database
	redis     *redis.Client
	startedAt time.Time
}

func NewHealthHandler(db *mongo.Database, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{mongo: db, redis: rdb, startedAt: time.Now()}
}

type livenessResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                 `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Liveness godoc
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	livenessResponse
//	@Router		/health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, livenessResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Readiness godoc
//
//	@Summary		Readiness check
//	@Description	Fails only when the Mongo credential store is unreachable. Redis carries alert fan-out and can only degrade readiness.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	readinessResponse
//	@Failure		503	{object}	readinessResponse
//	@Router			/health/ready [get]
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	resp := readinessResponse{Status: "ok", Dependencies: map[string]dependencyStatus{}}
	code := http.StatusOK

	if h.mongo != nil {
		r := checkDependency(h.mongo.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(), "unavailable")
		resp.Dependencies["mongodb"] = r
		if r.Status != "ok" {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		r := checkDependency(h.redis.Ping(ctx).Err(), "degraded")
		resp.Dependencies["redis"] = r
		if r.Status != "ok" && resp.Status == "ok" {
			resp.Status = "degraded"
		}
	}

	return c.JSON(code, resp)
}

func checkDependency(err error, failed string) dependencyStatus {
	if err != nil {
		return dependencyStatus{Status: failed, Error: err.Error()}
	}
	return dependencyStatus{Status: "ok"}
}
