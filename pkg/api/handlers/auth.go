package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadrouter/pkg/auth"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/middleware"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// AgentReader is the agent lookup surface the auth handler needs.
type AgentReader interface {
	Get(ctx context.Context, id string) (*models.Agent, error)
	GetByHandle(ctx context.Context, handle string) (*models.Agent, error)
}

// AuthHandler handles login, logout, and identity lookups.
type AuthHandler struct {
	agents    AgentReader
	jwt       *auth.JWTService
	blacklist *auth.Blacklist
	log       logger.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(agents AgentReader, jwt *auth.JWTService, blacklist *auth.Blacklist, log logger.Logger) *AuthHandler {
	return &AuthHandler{agents: agents, jwt: jwt, blacklist: blacklist, log: log}
}

// Login authenticates an agent and issues a token.
// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	agent, err := h.agents.GetByHandle(c.Request().Context(), req.Handle)
	if err != nil || !auth.CheckPassword(agent.PasswordHash, req.Password) {
		// Same answer for unknown handle and bad password.
		h.log.Warn("failed login attempt", "handle", req.Handle)
		return respondError(c, domain.NewUnauthorizedError())
	}

	token, err := h.jwt.GenerateToken(agent.ID, agent.Handle, agent.Role)
	if err != nil {
		return respondError(c, domain.NewInternalError(err))
	}

	h.log.Info("agent logged in", "agent_id", agent.ID)
	return c.JSON(http.StatusOK, models.LoginResponse{Token: token, Agent: agent.Snapshot()})
}

// Me returns the authenticated agent.
// GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	agent, err := h.agents.Get(c.Request().Context(), middleware.GetAgentID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, agent.Snapshot())
}

// Logout revokes the caller's token.
// POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if h.blacklist != nil {
		token := c.Request().Header.Get(echo.HeaderAuthorization)
		if len(token) > 7 {
			token = token[7:]
			if err := h.blacklist.Revoke(c.Request().Context(), token); err != nil {
				h.log.Warn("failed revoking token", "error", err)
			}
		}
	}
	return c.NoContent(http.StatusNoContent)
}
