package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadrouter/pkg/models"
)

// Admin roles allowed through RequireAdmin.
var adminRoles = map[string]bool{
	"admin":       true,
	"sales_admin": true,
}

// RequireAdmin rejects callers whose token does not carry an admin role.
// Must run after JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := GetClaims(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "missing token",
				})
			}
			if !adminRoles[claims.Role] {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "FORBIDDEN",
					Message: "admin role required",
				})
			}
			return next(c)
		}
	}
}
