// Package server exposes the provisioning use case over HTTP.
package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/magicianlee007/tpn-subnet/internal/config"
	"github.com/magicianlee007/tpn-subnet/internal/lease"
	"github.com/magicianlee007/tpn-subnet/internal/middleware"
)

// Acquirer is the slice of the provisioner the HTTP layer consumes.
type Acquirer interface {
	Acquire(ctx context.Context, leaseDuration time.Duration) (*lease.Grant, error)
}

// HealthChecker reports endpoint reachability for the health route.
type HealthChecker interface {
	IsReachable(ctx context.Context, timeout time.Duration) bool
}

// Dependencies encapsulates runtime services required to build the engine.
type Dependencies struct {
	Provisioner Acquirer
	Store       lease.Store
	Probe       HealthChecker
}

// BuildEngine constructs the Gin engine with the provisioning and health
// routes wired to their middleware.
func BuildEngine(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Security.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestLogger(), middleware.Recovery())

	h := &handler{cfg: cfg, deps: deps}
	engine.GET("/healthz", h.health)

	api := engine.Group("/api")
	api.Use(
		middleware.RateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		middleware.ManagementAuth(cfg.Security.ManagementKeyHash),
	)
	api.GET("/config/new", h.newConfig)

	return engine
}
