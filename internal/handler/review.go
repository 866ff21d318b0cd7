package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// ReviewHandler serves listing reviews.
type ReviewHandler struct {
	Reviews *service.ReviewService
	Timeout time.Duration
}

func NewReviewHandler(r *service.ReviewService, timeout time.Duration) *ReviewHandler {
	return &ReviewHandler{Reviews: r, Timeout: timeout}
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Submit: POST /v1/listings/:id/reviews
func (h *ReviewHandler) Submit(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	r, err := h.Reviews.Submit(ctx, middleware.IdentityFrom(c), c.Param("id"), service.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return fail(c, "review", "submit", err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List: GET /v1/listings/:id/reviews
func (h *ReviewHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Reviews.List(ctx, c.Param("id"))
	if err != nil {
		return fail(c, "review", "list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": list})
}
