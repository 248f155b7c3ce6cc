package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadrouter/pkg/distribution"
	"github.com/jordanlanch/leadrouter/pkg/events"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/middleware"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/presence"
)

const (
	keepAliveInterval = 25 * time.Second
	listLimit         = 100
)

// LeadReader is the lead query surface for agent-facing endpoints.
type LeadReader interface {
	ListByStatus(ctx context.Context, status models.LeadStatus, minAge time.Duration, limit int) ([]*models.Lead, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.Lead, error)
	ListDiscarded(ctx context.Context, limit int) ([]*models.Lead, error)
	CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error)
}

// LeadsHandler serves the agent-facing lead endpoints and event streams.
type LeadsHandler struct {
	leads       LeadReader
	distributor *distribution.Service
	presence    *presence.Service
	hub         *events.Hub
	log         logger.Logger
}

// NewLeadsHandler creates a leads handler.
func NewLeadsHandler(leads LeadReader, distributor *distribution.Service, presenceSvc *presence.Service, hub *events.Hub, log logger.Logger) *LeadsHandler {
	return &LeadsHandler{leads: leads, distributor: distributor, presence: presenceSvc, hub: hub, log: log}
}

// Events streams lead notifications for the authenticated agent over SSE.
// GET /leads/events
func (h *LeadsHandler) Events(c echo.Context) error {
	agentID := middleware.GetAgentID(c)
	ch, cancel := h.hub.Subscribe(agentID)
	defer cancel()
	return h.streamEvents(c, agentID, ch)
}

func (h *LeadsHandler) streamEvents(c echo.Context, streamID string, ch <-chan events.Event) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	metrics.SSESubscribers.Inc()
	defer metrics.SSESubscribers.Dec()

	writeSSE(res, events.Event{Type: "hello", Data: map[string]string{"stream": streamID}})
	res.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			writeSSE(res, ev)
			res.Flush()
		case <-ticker.C:
			fmt.Fprint(res, ": keep-alive\n\n")
			res.Flush()
		}
	}
}

func writeSSE(res *echo.Response, ev events.Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		data = []byte("{}")
	}
	fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Type, data)
}

// Available lists unassigned leads ready for pickup.
// GET /leads/available
func (h *LeadsHandler) Available(c echo.Context) error {
	leads, err := h.leads.ListByStatus(c.Request().Context(), models.StatusAvailable, 0, listLimit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, leadList(leads))
}

// Mine lists the leads held by the authenticated agent, optionally
// narrowed by ?status= and ?category=.
// GET /leads/mine
func (h *LeadsHandler) Mine(c echo.Context) error {
	leads, err := h.leads.ListByAgent(c.Request().Context(), middleware.GetAgentID(c))
	if err != nil {
		return respondError(c, err)
	}

	status := c.QueryParam("status")
	category := c.QueryParam("category")
	if status != "" || category != "" {
		filtered := make([]*models.Lead, 0, len(leads))
		for _, lead := range leads {
			if status != "" && string(lead.Status) != status {
				continue
			}
			if category != "" && string(lead.Category()) != category {
				continue
			}
			filtered = append(filtered, lead)
		}
		leads = filtered
	}
	return c.JSON(http.StatusOK, leadList(leads))
}

// Discarded lists recently discarded leads.
// GET /leads/discarded
func (h *LeadsHandler) Discarded(c echo.Context) error {
	leads, err := h.leads.ListDiscarded(c.Request().Context(), listLimit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, leadList(leads))
}

// Confirm closes a held lead as won.
// POST /leads/confirm
func (h *LeadsHandler) Confirm(c echo.Context) error {
	var req models.LeadActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	lead, err := h.distributor.Confirm(c.Request().Context(), req.LeadID, middleware.GetAgentID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// Discard rejects a held lead.
// POST /leads/discard
func (h *LeadsHandler) Discard(c echo.Context) error {
	var req models.LeadActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	lead, err := h.distributor.Discard(c.Request().Context(), req.LeadID, middleware.GetAgentID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// Dashboard returns lead counts per state plus today's distribution stats.
// GET /leads/dashboard
func (h *LeadsHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	counts, err := h.leads.CountByStatus(ctx)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.distributor.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"leads": counts,
		"today": stats,
	})
}

// SetOnline toggles the caller's presence flag.
// POST /agents/online
func (h *LeadsHandler) SetOnline(c echo.Context) error {
	var req models.SetOnlineRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	agent, err := h.presence.SetOnline(c.Request().Context(), middleware.GetAgentID(c), *req.Online)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, agent.Snapshot())
}

// Heartbeat refreshes the caller's activity timestamp.
// POST /agents/heartbeat
func (h *LeadsHandler) Heartbeat(c echo.Context) error {
	if err := h.presence.Heartbeat(c.Request().Context(), middleware.GetAgentID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// leadList keeps empty results as [] instead of null.
func leadList(leads []*models.Lead) []*models.Lead {
	if leads == nil {
		return []*models.Lead{}
	}
	return leads
}
