package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// RegisterCustomer registers customer-scoped endpoints.  Customers book
// listings, cancel their own pending bookings and review listings.
func RegisterCustomer(v1 *echo.Group, b *handler.BookingHandler, r *handler.ReviewHandler, jwtSecret string) {
	g := v1.Group("",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	g.POST("/bookings", b.Create)
	g.POST("/bookings/:id/cancel", b.Cancel)
	g.POST("/listings/:id/reviews", r.Submit)
}

// RegisterBookings registers the endpoints open to either party of a
// booking.  Participation is checked by the service layer.
func RegisterBookings(v1 *echo.Group, b *handler.BookingHandler, jwtSecret string) {
	g := v1.Group("",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleProvider),
	)
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.POST("/bookings/:id/complete", b.Complete)
}
