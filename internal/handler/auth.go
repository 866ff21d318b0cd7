package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// AuthHandler bundles dependencies for auth and profile endpoints.
type AuthHandler struct {
	Identity *service.IdentityService
	Catalog  *service.CatalogService
	Bookings *service.BookingService
	Timeout  time.Duration
}

func NewAuthHandler(id *service.IdentityService, cat *service.CatalogService, b *service.BookingService, timeout time.Duration) *AuthHandler {
	return &AuthHandler{Identity: id, Catalog: cat, Bookings: b, Timeout: timeout}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Password string `json:"password"`
	Role     string `json:"role"` // customer | provider
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// profileResp is the dashboard: providers get their listings, customers
// their bookings.
type profileResp struct {
	Actor    model.Actor           `json:"actor"`
	Listings []model.Listing       `json:"listings,omitempty"`
	Bookings []model.BookingDetail `json:"bookings,omitempty"`
}

// Register: create actor and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	s, err := h.Identity.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Contact:  req.Contact,
		Password: req.Password,
		Role:     model.Role(strings.ToLower(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		return fail(c, "auth", "register", err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	s, err := h.Identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, "auth", "login", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Refresh: rotate the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	pair, err := h.Identity.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, "auth", "refresh", err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout revokes the posted refresh token.  An authenticated caller that
// posts none has every token revoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	if err := h.Identity.Logout(ctx, middleware.IdentityFrom(c), strings.TrimSpace(req.RefreshToken)); err != nil {
		return fail(c, "auth", "logout", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile and dashboard.
func (h *AuthHandler) Me(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	a, err := h.Identity.Profile(ctx, id)
	if err != nil {
		return fail(c, "auth", "profile", err)
	}
	resp := profileResp{Actor: a}
	if id.IsProvider() {
		res, err := h.Catalog.Search(ctx, id, "", "")
		if err != nil {
			return fail(c, "auth", "profile", err)
		}
		resp.Listings = res.Listings
	} else {
		resp.Bookings, err = h.Bookings.List(ctx, id)
		if err != nil {
			return fail(c, "auth", "profile", err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
