package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/service-marketplace/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated actor has one of the specified roles.  It must run after
// JWTAuth.  An anonymous request yields 401; a request with the wrong
// role yields 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if id.Anonymous() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !allowed[id.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
