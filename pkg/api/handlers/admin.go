package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadrouter/pkg/distribution"
	"github.com/jordanlanch/leadrouter/pkg/events"
	"github.com/jordanlanch/leadrouter/pkg/ingest"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/presence"
)

// AdminHandler serves the operator endpoints: distribution control,
// presence monitoring, and ingestion control.
type AdminHandler struct {
	distributor *distribution.Service
	presence    *presence.Service
	watcher     *ingest.Watcher
	hub         *events.Hub
	leads       *LeadsHandler
	log         logger.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(distributor *distribution.Service, presenceSvc *presence.Service, watcher *ingest.Watcher, hub *events.Hub, leads *LeadsHandler, log logger.Logger) *AdminHandler {
	return &AdminHandler{distributor: distributor, presence: presenceSvc, watcher: watcher, hub: hub, leads: leads, log: log}
}

// ListConfigs returns the active distribution configs.
// GET /admin/distribution/config
func (h *AdminHandler) ListConfigs(c echo.Context) error {
	configs, err := h.distributor.ListConfigs(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if configs == nil {
		configs = []*models.DistributionConfig{}
	}
	return c.JSON(http.StatusOK, configs)
}

// UpsertConfig saves one agent's weight and category.
// POST /admin/distribution/config
func (h *AdminHandler) UpsertConfig(c echo.Context) error {
	var req models.UpsertConfigRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := h.distributor.UpsertConfig(c.Request().Context(), req.AgentID, req.Weight, models.Category(req.Category)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Status reports whether automatic distribution is on.
// GET /admin/distribution/status
func (h *AdminHandler) Status(c echo.Context) error {
	enabled, err := h.distributor.Enabled(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"enabled": enabled})
}

// Toggle flips the automatic distribution switch.
// POST /admin/distribution/toggle
func (h *AdminHandler) Toggle(c echo.Context) error {
	var req struct {
		Enabled *bool `json:"enabled" validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := h.distributor.SetEnabled(c.Request().Context(), *req.Enabled); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

// ManualAssign hands a lead to a chosen agent.
// POST /admin/distribution/assign
func (h *AdminHandler) ManualAssign(c echo.Context) error {
	var req models.ManualAssignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	lead, err := h.distributor.ManualAssign(c.Request().Context(), req.LeadID, req.AgentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// AutoAssign runs the automatic pipeline for one lead.
// POST /admin/distribution/auto
func (h *AdminHandler) AutoAssign(c echo.Context) error {
	var req models.AutoAssignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	result, err := h.distributor.AutoAssign(c.Request().Context(), req.LeadID, false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// BatchAssign drains a backlog through the automatic pipeline.
// POST /admin/distribution/batch
func (h *AdminHandler) BatchAssign(c echo.Context) error {
	var req models.BatchAssignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	status := models.LeadStatus(req.Status)
	if req.Status == "" {
		status = models.StatusAvailable
	}
	result, err := h.distributor.BatchAssign(c.Request().Context(), status, req.IgnoreDelay)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ProcessQueue drains the queued backlog right now, skipping the dwell
// time. The cron tick runs the same operation on a schedule.
// POST /admin/distribution/process-queue
func (h *AdminHandler) ProcessQueue(c echo.Context) error {
	result, err := h.distributor.BatchAssign(c.Request().Context(), models.StatusQueued, true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Requeue releases a lead back to the pool.
// POST /admin/leads/requeue
func (h *AdminHandler) Requeue(c echo.Context) error {
	var req models.LeadActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	lead, err := h.distributor.Requeue(c.Request().Context(), req.LeadID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// Stats returns today's distribution aggregates.
// GET /admin/distribution/stats
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.distributor.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Presence lists recently active agents.
// GET /admin/agents/online
func (h *AdminHandler) Presence(c echo.Context) error {
	agents, err := h.presence.RecentlyActive(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if agents == nil {
		agents = []models.AgentSnapshot{}
	}
	return c.JSON(http.StatusOK, agents)
}

// PresenceStream streams presence changes to operator dashboards over SSE.
// GET /admin/events/stream
func (h *AdminHandler) PresenceStream(c echo.Context) error {
	ch, cancel := h.hub.SubscribeAdmin()
	defer cancel()
	return h.leads.streamEvents(c, "admin", ch)
}

// PresenceStats reports online time per agent for today.
// GET /admin/presence/stats
func (h *AdminHandler) PresenceStats(c echo.Context) error {
	stats, err := h.presence.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if stats == nil {
		stats = []models.PresenceStat{}
	}
	return c.JSON(http.StatusOK, stats)
}

// IngestScan processes pending lead files right now.
// POST /admin/ingest/scan
func (h *AdminHandler) IngestScan(c echo.Context) error {
	created, err := h.watcher.Scan(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"created": created})
}

// IngestStart starts the directory watcher.
// POST /admin/ingest/start
func (h *AdminHandler) IngestStart(c echo.Context) error {
	// The watcher outlives this request.
	if err := h.watcher.Start(context.Background()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.watcher.Stats())
}

// IngestStop stops the directory watcher.
// POST /admin/ingest/stop
func (h *AdminHandler) IngestStop(c echo.Context) error {
	h.watcher.Stop()
	return c.JSON(http.StatusOK, h.watcher.Stats())
}

// IngestStats reports the watcher counters.
// GET /admin/ingest/stats
func (h *AdminHandler) IngestStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.watcher.Stats())
}
