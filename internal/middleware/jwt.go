package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the resolved model.Identity on the request context.  The provided
// secret must match the one used when issuing tokens.  Requests without a
// valid token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			id, err := resolve(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWT resolves the caller when a valid Bearer token is present and
// otherwise lets the request through as anonymous.  It is used on public
// routes whose output depends on who is asking.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if id, err := resolve(secret, raw); err == nil {
					SetIdentity(c, id)
				}
			}
			return next(c)
		}
	}
}

// bearer extracts the token from "Authorization: Bearer <token>".
func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// resolve parses the token and converts its claims into an Identity.  An
// unknown role claim invalidates the token.
func resolve(secret, raw string) (model.Identity, error) {
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return model.Identity{}, err
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return model.Identity{}, utils.ErrInvalidToken
	}
	return model.Identity{ActorID: claims.Subject, Role: role}, nil
}
