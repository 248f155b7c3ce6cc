package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadrouter/pkg/auth"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// Context keys for the authenticated agent.
const (
	ContextKeyClaims  = "auth_claims"
	ContextKeyAgentID = "agent_id"
)

// JWTAuth validates the bearer token and stores the claims on the echo
// context. EventSource cannot set headers, so SSE clients may pass the
// token as a ?token= query parameter instead.
func JWTAuth(jwtService *auth.JWTService, blacklist *auth.Blacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "missing token",
				})
			}

			if blacklist != nil {
				revoked, err := blacklist.IsRevoked(c.Request().Context(), token)
				if err == nil && revoked {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
						Error:   "UNAUTHORIZED",
						Message: "token revoked",
					})
				}
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "invalid token",
				})
			}

			c.Set(ContextKeyClaims, claims)
			c.Set(ContextKeyAgentID, claims.AgentID)
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.QueryParam("token")
}

// GetClaims returns the authenticated claims set by JWTAuth.
func GetClaims(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(ContextKeyClaims).(*auth.Claims)
	return claims, ok
}

// GetAgentID returns the authenticated agent id set by JWTAuth.
func GetAgentID(c echo.Context) string {
	id, _ := c.Get(ContextKeyAgentID).(string)
	return id
}
