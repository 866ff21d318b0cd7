package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/repository/memory"
	"github.com/iliyamo/service-marketplace/internal/service"
)

const secret = "router-test-secret"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T, limiter echo.MiddlewareFunc) *api {
	t.Helper()
	st := memory.New()
	idCfg := service.IdentityConfig{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	ids := service.NewIdentityService(st.Actors, st.Tokens, idCfg)
	cat := service.NewCatalogService(st)
	books := service.NewBookingService(st, service.NoopPublisher{}, zerolog.Nop())
	revs := service.NewReviewService(st, false)

	h := Handlers{
		Health:   handler.NewHealthHandler("memory"),
		Auth:     handler.NewAuthHandler(ids, cat, books, time.Second),
		Listings: handler.NewListingHandler(cat, time.Second),
		Bookings: handler.NewBookingHandler(books, time.Second),
		Reviews:  handler.NewReviewHandler(revs, time.Second),
	}
	return &api{t: t, e: New(h, secret, limiter)}
}

func (a *api) call(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type session struct {
	Actor struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"actor"`
	Tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"tokens"`
}

func (a *api) register(name, email, role string) session {
	a.t.Helper()
	rec := a.call(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"name": name, "email": email, "contact": "555-0100", "password": "pw-" + name, "role": role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[session](a.t, rec)
}

type listingResp struct {
	ID              string  `json:"id"`
	ProviderID      string  `json:"provider_id"`
	Price           string  `json:"price"`
	AggregateRating float64 `json:"aggregate_rating"`
}

type bookingResp struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Hours             int    `json:"hours"`
	CustomerCompleted bool   `json:"customer_completed"`
	ProviderCompleted bool   `json:"provider_completed"`
}

func (a *api) listing(token, title, category string) listingResp {
	a.t.Helper()
	rec := a.call(http.MethodPost, "/v1/listings", token, echo.Map{
		"title": title, "description": "Professional " + title, "price": 120,
		"location": "Springfield", "contact": "555-0101", "category": category,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[listingResp](a.t, rec)
}

func TestProbes(t *testing.T) {
	a := newAPI(t, nil)

	rec := a.call(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"memory"`)

	rec = a.call(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestBookingLifecycle(t *testing.T) {
	a := newAPI(t, nil)
	prov := a.register("Pat", "pat@example.com", "provider")
	cust := a.register("Cas", "cas@example.com", "customer")
	pTok, cTok := prov.Tokens.AccessToken, cust.Tokens.AccessToken

	l := a.listing(pTok, "Deep Cleaning", "Cleaning")
	assert.Equal(t, prov.Actor.ID, l.ProviderID)
	assert.Equal(t, "120", l.Price)

	rec := a.call(http.MethodPost, "/v1/bookings", cTok, echo.Map{
		"listing_id": l.ID, "date": "2026-11-02", "hours": 12,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[bookingResp](t, rec)
	assert.Equal(t, "pending", b.Status)
	assert.Equal(t, 8, b.Hours)

	rec = a.call(http.MethodPost, "/v1/bookings/"+b.ID+"/confirm", pTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[bookingResp](t, rec).Status)

	// Confirmed bookings can no longer be cancelled.
	rec = a.call(http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", cTok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.call(http.MethodPost, "/v1/bookings/"+b.ID+"/complete", cTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[bookingResp](t, rec)
	assert.Equal(t, "confirmed", got.Status)
	assert.True(t, got.CustomerCompleted)

	rec = a.call(http.MethodPost, "/v1/bookings/"+b.ID+"/complete", pTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[bookingResp](t, rec)
	assert.Equal(t, "complete", got.Status)
	assert.True(t, got.ProviderCompleted)

	rec = a.call(http.MethodGet, "/v1/bookings", pTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Bookings []struct {
			Booking  bookingResp `json:"booking"`
			Customer struct {
				ID string `json:"id"`
			} `json:"customer"`
		} `json:"bookings"`
	}](t, rec)
	require.Len(t, list.Bookings, 1)
	assert.Equal(t, cust.Actor.ID, list.Bookings[0].Customer.ID)

	rec = a.call(http.MethodGet, "/v1/me", cTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), b.ID)
}

func TestReviewsUpdateAggregate(t *testing.T) {
	a := newAPI(t, nil)
	prov := a.register("Pat", "pat@example.com", "provider")
	c1 := a.register("One", "one@example.com", "customer")
	c2 := a.register("Two", "two@example.com", "customer")
	l := a.listing(prov.Tokens.AccessToken, "Garden Care", "Gardening")

	for tok, rating := range map[string]int{c1.Tokens.AccessToken: 4, c2.Tokens.AccessToken: 2} {
		rec := a.call(http.MethodPost, "/v1/listings/"+l.ID+"/reviews", tok, echo.Map{"rating": rating, "comment": "ok"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := a.call(http.MethodGet, "/v1/listings/"+l.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		Listing listingResp `json:"listing"`
		Reviews []any       `json:"reviews"`
	}](t, rec)
	assert.InDelta(t, 3.0, detail.Listing.AggregateRating, 1e-9)
	assert.Len(t, detail.Reviews, 2)

	rec = a.call(http.MethodPost, "/v1/listings/"+l.ID+"/reviews", c1.Tokens.AccessToken, echo.Map{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"rating"`)
}

func TestSearchNarrowsForProviders(t *testing.T) {
	a := newAPI(t, nil)
	p1 := a.register("Pat", "pat@example.com", "provider")
	p2 := a.register("Sam", "sam@example.com", "provider")
	a.listing(p1.Tokens.AccessToken, "Window Cleaning", "Cleaning")
	a.listing(p2.Tokens.AccessToken, "Carpet Cleaning", "Cleaning")

	type page struct {
		Listings   []listingResp `json:"listings"`
		Categories []string      `json:"categories"`
	}
	guest := decode[page](t, a.call(http.MethodGet, "/v1/listings?q=cleaning", "", nil))
	assert.Len(t, guest.Listings, 2)
	assert.Equal(t, []string{"Cleaning"}, guest.Categories)

	own := decode[page](t, a.call(http.MethodGet, "/v1/listings?q=cleaning", p1.Tokens.AccessToken, nil))
	require.Len(t, own.Listings, 1)
	assert.Equal(t, p1.Actor.ID, own.Listings[0].ProviderID)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t, nil)
	prov := a.register("Pat", "pat@example.com", "provider")
	cust := a.register("Cas", "cas@example.com", "customer")
	l := a.listing(prov.Tokens.AccessToken, "Tutoring", "Tutoring")

	rec := a.call(http.MethodPost, "/v1/listings", "", echo.Map{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodPost, "/v1/listings", cust.Tokens.AccessToken, echo.Map{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.call(http.MethodGet, "/v1/listings/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, handler.CatalogPath, decode[map[string]any](t, rec)["redirect"])

	rec = a.call(http.MethodPost, "/v1/bookings", cust.Tokens.AccessToken, echo.Map{"listing_id": "missing", "date": "2026-11-02", "hours": 2})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.call(http.MethodPost, "/v1/bookings", cust.Tokens.AccessToken, echo.Map{"listing_id": l.ID, "hours": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"name": "Dup", "email": "PAT@example.com", "contact": "x", "password": "pw", "role": "customer",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Another provider cannot delete the listing.
	other := a.register("Sam", "sam@example.com", "provider")
	rec = a.call(http.MethodDelete, "/v1/listings/"+l.ID, other.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.call(http.MethodDelete, "/v1/listings/"+l.ID, prov.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.call(http.MethodGet, "/v1/listings/"+l.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	a := newAPI(t, nil)
	s := a.register("Cas", "cas@example.com", "customer")

	rec := a.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": s.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[struct {
		RefreshToken string `json:"refresh_token"`
	}](t, rec)
	assert.NotEqual(t, s.Tokens.RefreshToken, rotated.RefreshToken)

	// The old token was rotated out.
	rec = a.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": s.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodPost, "/v1/auth/logout", "", echo.Map{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.call(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "cas@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitedByActor(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 3, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "actor", Prefix: "rl",
	}
	a := newAPI(t, middleware.NewTokenBucket(cfg, nil, zerolog.Nop()))
	// Registration itself consumes anonymous tokens.
	s := a.register("Cas", "cas@example.com", "customer")

	for i := 0; i < 3; i++ {
		rec := a.call(http.MethodGet, "/v1/categories", s.Tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := a.call(http.MethodGet, "/v1/categories", s.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// /healthz sits outside the limited group.
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/healthz", "", nil).Code)
}
