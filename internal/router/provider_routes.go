package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// RegisterProvider registers provider-scoped endpoints: catalog edits and
// booking confirmation.  Ownership of the listing is checked by the
// service layer.
func RegisterProvider(v1 *echo.Group, l *handler.ListingHandler, b *handler.BookingHandler, jwtSecret string) {
	g := v1.Group("",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleProvider),
	)
	g.POST("/listings", l.Create)
	g.PUT("/listings/:id", l.Update)
	g.DELETE("/listings/:id", l.Delete)
	g.POST("/bookings/:id/confirm", b.Confirm)
}
