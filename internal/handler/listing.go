package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// ListingHandler serves the catalog: browsing is public, edits are
// provider-only.
type ListingHandler struct {
	Catalog *service.CatalogService
	Timeout time.Duration
}

func NewListingHandler(cat *service.CatalogService, timeout time.Duration) *ListingHandler {
	return &ListingHandler{Catalog: cat, Timeout: timeout}
}

// listingReq accepts price as a JSON number or a numeric string.
type listingReq struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Location    string      `json:"location"`
	Contact     string      `json:"contact"`
	Category    string      `json:"category"`
}

func (r listingReq) input() service.ListingInput {
	return service.ListingInput{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price.String(),
		Location:    r.Location,
		Contact:     r.Contact,
		Category:    r.Category,
	}
}

// Search: GET /v1/listings?q=&category=
func (h *ListingHandler) Search(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	res, err := h.Catalog.Search(ctx, middleware.IdentityFrom(c), c.QueryParam("q"), c.QueryParam("category"))
	if err != nil {
		return fail(c, "catalog", "search", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Featured: GET /v1/listings/featured?n=
func (h *ListingHandler) Featured(c echo.Context) error {
	n := service.FeaturedCount
	if raw := c.QueryParam("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 50 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "n must be between 1 and 50"})
		}
		n = v
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Catalog.Featured(ctx, n)
	if err != nil {
		return fail(c, "catalog", "featured", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": list})
}

// Categories: GET /v1/categories
func (h *ListingHandler) Categories(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	cats, err := h.Catalog.Categories(ctx)
	if err != nil {
		return fail(c, "catalog", "categories", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}

// Get: GET /v1/listings/:id
func (h *ListingHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	d, err := h.Catalog.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, "catalog", "get", err)
	}
	return c.JSON(http.StatusOK, d)
}

// Create: POST /v1/listings
func (h *ListingHandler) Create(c echo.Context) error {
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	l, err := h.Catalog.Add(ctx, middleware.IdentityFrom(c), req.input())
	if err != nil {
		return fail(c, "catalog", "create", err)
	}
	return c.JSON(http.StatusCreated, l)
}

// Update: PUT /v1/listings/:id
func (h *ListingHandler) Update(c echo.Context) error {
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	l, err := h.Catalog.Update(ctx, middleware.IdentityFrom(c), c.Param("id"), req.input())
	if err != nil {
		return fail(c, "catalog", "update", err)
	}
	return c.JSON(http.StatusOK, l)
}

// Delete: DELETE /v1/listings/:id removes the listing with its bookings
// and reviews.
func (h *ListingHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	if err := h.Catalog.Delete(ctx, middleware.IdentityFrom(c), c.Param("id")); err != nil {
		return fail(c, "catalog", "delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}
