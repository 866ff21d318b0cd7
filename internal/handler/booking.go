package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// BookingHandler exposes the booking state machine.
type BookingHandler struct {
	Bookings *service.BookingService
	Timeout  time.Duration
}

func NewBookingHandler(b *service.BookingService, timeout time.Duration) *BookingHandler {
	return &BookingHandler{Bookings: b, Timeout: timeout}
}

// bookingReq: hours may be sent as a number or a string; json.Number
// keeps a missing value distinguishable from zero.
type bookingReq struct {
	ListingID string      `json:"listing_id"`
	Date      string      `json:"date"`
	Hours     json.Number `json:"hours"`
}

// Create: POST /v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, middleware.IdentityFrom(c), service.BookingInput{
		ListingID: req.ListingID,
		Date:      req.Date,
		Hours:     req.Hours.String(),
	})
	if err != nil {
		return fail(c, "booking", "create", err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Cancel: POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.apply(c, "cancel", h.Bookings.Cancel)
}

// Confirm: POST /v1/bookings/:id/confirm
func (h *BookingHandler) Confirm(c echo.Context) error {
	return h.apply(c, "confirm", h.Bookings.Confirm)
}

// Complete: POST /v1/bookings/:id/complete marks the caller's side done.
func (h *BookingHandler) Complete(c echo.Context) error {
	return h.apply(c, "complete", h.Bookings.Complete)
}

func (h *BookingHandler) apply(c echo.Context, op string, fn func(context.Context, model.Identity, string) (model.Booking, error)) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	b, err := fn(ctx, middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, "booking", op, err)
	}
	return c.JSON(http.StatusOK, b)
}

// List: GET /v1/bookings
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Bookings.List(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return fail(c, "booking", "list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Get: GET /v1/bookings/:id
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	d, err := h.Bookings.Get(ctx, middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, "booking", "get", err)
	}
	return c.JSON(http.StatusOK, d)
}
