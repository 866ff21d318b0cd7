package middleware

// identity.go holds the helpers that store and read the resolved caller
// on the Echo context.  JWTAuth and OptionalJWT write it; handlers read it
// with IdentityFrom and pass it explicitly into the service layer.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// Context keys.  actor_id and role are kept as plain strings for the
// request logger and the rate limiter.
const (
	ctxIdentity = "identity"
	ctxActorID  = "actor_id"
	ctxRole     = "role"
)

// SetIdentity stores id on the context.
func SetIdentity(c echo.Context, id model.Identity) {
	c.Set(ctxIdentity, id)
	c.Set(ctxActorID, id.ActorID)
	c.Set(ctxRole, string(id.Role))
}

// IdentityFrom returns the caller resolved for this request, or the
// anonymous identity when none was.
func IdentityFrom(c echo.Context) model.Identity {
	if id, ok := c.Get(ctxIdentity).(model.Identity); ok {
		return id
	}
	return model.Identity{}
}

// actorKey identifies the caller for rate limiting, "anon" when unknown.
func actorKey(c echo.Context) string {
	if id := IdentityFrom(c); !id.Anonymous() {
		return id.ActorID
	}
	return "anon"
}
