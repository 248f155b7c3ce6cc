package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordanlanch/leadrouter/config"
	"github.com/jordanlanch/leadrouter/pkg/api/handlers"
	"github.com/jordanlanch/leadrouter/pkg/auth"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/middleware"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router wires the HTTP surface.
type Router struct {
	Auth      *handlers.AuthHandler
	Leads     *handlers.LeadsHandler
	Admin     *handlers.AdminHandler
	JWT       *auth.JWTService
	Blacklist *auth.Blacklist
	DB        Pinger
	Cache     Pinger
}

// New builds the echo instance with all middleware and routes registered.
func (r *Router) New(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.Gzip())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	e.Use(metrics.HTTPMetrics())
	if cfg.RateLimitEnabled {
		e.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware())
	}

	e.GET("/", r.info)
	e.GET("/health", r.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")
	v1.POST("/auth/login", r.Auth.Login)

	authed := v1.Group("", middleware.JWTAuth(r.JWT, r.Blacklist))
	authed.GET("/auth/me", r.Auth.Me)
	authed.POST("/auth/logout", r.Auth.Logout)

	authed.GET("/leads/events", r.Leads.Events)
	authed.GET("/leads/available", r.Leads.Available)
	authed.GET("/leads/mine", r.Leads.Mine)
	authed.GET("/leads/discarded", r.Leads.Discarded)
	authed.GET("/leads/dashboard", r.Leads.Dashboard)
	authed.POST("/leads/confirm", r.Leads.Confirm)
	authed.POST("/leads/discard", r.Leads.Discard)

	authed.POST("/agents/online", r.Leads.SetOnline)
	authed.POST("/agents/heartbeat", r.Leads.Heartbeat)

	admin := authed.Group("/admin", middleware.RequireAdmin())
	admin.GET("/events/stream", r.Admin.PresenceStream)
	admin.GET("/agents/online", r.Admin.Presence)
	admin.GET("/presence/stats", r.Admin.PresenceStats)

	admin.GET("/distribution/config", r.Admin.ListConfigs)
	admin.POST("/distribution/config", r.Admin.UpsertConfig)
	admin.GET("/distribution/status", r.Admin.Status)
	admin.POST("/distribution/toggle", r.Admin.Toggle)
	admin.POST("/distribution/assign", r.Admin.ManualAssign)
	admin.POST("/distribution/auto", r.Admin.AutoAssign)
	admin.POST("/distribution/batch", r.Admin.BatchAssign)
	admin.POST("/distribution/process-queue", r.Admin.ProcessQueue)
	admin.GET("/distribution/stats", r.Admin.Stats)
	admin.POST("/leads/requeue", r.Admin.Requeue)

	admin.POST("/ingest/scan", r.Admin.IngestScan)
	admin.POST("/ingest/start", r.Admin.IngestStart)
	admin.POST("/ingest/stop", r.Admin.IngestStop)
	admin.GET("/ingest/stats", r.Admin.IngestStats)

	return e
}

func (r *Router) info(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":    "leadrouter",
		"version": "v1",
	})
}

func (r *Router) health(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]string{"status": "ok", "database": "ok", "cache": "ok"}
	healthy := true

	if r.DB != nil {
		if err := r.DB.Ping(ctx); err != nil {
			status["database"] = "down"
			healthy = false
		}
	}
	if r.Cache != nil {
		if err := r.Cache.Ping(ctx); err != nil {
			status["cache"] = "down"
			healthy = false
		}
	}
	if !healthy {
		status["status"] = "degraded"
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
