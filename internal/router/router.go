package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/service-marketplace/internal/handler"    // handlers translating HTTP to service calls
	"github.com/iliyamo/service-marketplace/internal/logging"    // per-request structured logs
	"github.com/iliyamo/service-marketplace/internal/middleware" // JWT, roles, request ids and rate limiting
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Listings *handler.ListingHandler
	Bookings *handler.BookingHandler
	Reviews  *handler.ReviewHandler
}

// New builds the Echo instance with the global middleware chain and every
// route registered.  limiter may be nil.
func New(h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Order matters: the request id must exist before the logger reads it,
	// and metrics wrap everything after recovery.
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(monitoring.Middleware())
	e.Use(logging.RequestLogger())

	RegisterRoutes(e, h.Health)
	// The caller is resolved for every /v1 request so the limiter can key
	// on the actor; protected routes still require JWTAuth.
	v1 := e.Group("/v1", middleware.OptionalJWT(jwtSecret))
	if limiter != nil {
		v1.Use(limiter)
	}
	RegisterAuth(v1, h.Auth, jwtSecret)
	RegisterPublic(v1, h.Listings, h.Reviews)
	RegisterProvider(v1, h.Listings, h.Bookings, jwtSecret)
	RegisterCustomer(v1, h.Bookings, h.Reviews, jwtSecret)
	RegisterBookings(v1, h.Bookings, jwtSecret)
	return e
}

// RegisterRoutes registers the probe endpoints.  They are never rate
// limited.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(monitoring.Handler()))
}

// RegisterAuth registers the session endpoints.  register, login and
// refresh need no session.  A logout without a refresh token revokes every
// token of the resolved caller.  /me requires a session.
func RegisterAuth(v1 *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	g := v1.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	v1.GET("/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleProvider))
}

// RegisterPublic registers the browse endpoints.  A provider that sends a
// token has the search narrowed to their own listings; guests see the
// whole catalog.
func RegisterPublic(v1 *echo.Group, l *handler.ListingHandler, r *handler.ReviewHandler) {
	v1.GET("/listings", l.Search)
	v1.GET("/listings/featured", l.Featured)
	v1.GET("/categories", l.Categories)
	v1.GET("/listings/:id", l.Get)
	v1.GET("/listings/:id/reviews", r.List)
}
