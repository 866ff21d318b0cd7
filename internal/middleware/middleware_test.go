package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

const testSecret = "test-secret"

func token(t *testing.T, actorID string, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, actorID, string(role), 5)
	require.NoError(t, err)
	return tok.Token
}

func identityEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		id := IdentityFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"actor_id": id.ActorID, "role": id.Role})
	}, mw...)
	return e
}

func do(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := identityEcho(JWTAuth(testSecret))

	rec := do(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "Bearer "+token(t, "a1", model.RoleProvider))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"actor_id":"a1","role":"provider"}`, rec.Body.String())
}

func TestJWTAuthRejectsUnknownRole(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, "a1", "admin", 5)
	require.NoError(t, err)

	rec := do(identityEcho(JWTAuth(testSecret)), "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalJWT(t *testing.T) {
	e := identityEcho(OptionalJWT(testSecret))

	rec := do(e, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"actor_id":"","role":""}`, rec.Body.String())

	// A bad token degrades to anonymous instead of failing the request.
	rec = do(e, "Bearer garbage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"actor_id":"","role":""}`, rec.Body.String())

	rec = do(e, "Bearer "+token(t, "c1", model.RoleCustomer))
	assert.JSONEq(t, `{"actor_id":"c1","role":"customer"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := identityEcho(JWTAuth(testSecret), RequireRole(model.RoleProvider))

	rec := do(e, "Bearer "+token(t, "c1", model.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, "Bearer "+token(t, "p1", model.RoleProvider))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Without JWTAuth in front the caller is anonymous.
	rec = do(identityEcho(RequireRole(model.RoleCustomer)), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("request_id").(string))
	}, RequestID())

	rec := do(e, "")
	generated := rec.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func limitConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

func TestTokenBucketLocal(t *testing.T) {
	e := identityEcho(NewTokenBucket(limitConfig(2), nil, zerolog.Nop()))

	for i := 0; i < 2; i++ {
		rec := do(e, "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := do(e, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := limitConfig(1)
	cfg.Enabled = false
	e := identityEcho(NewTokenBucket(cfg, nil, zerolog.Nop()))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, "").Code)
	}
}

func TestLocalLimiterRefillAndSweep(t *testing.T) {
	cfg := limitConfig(1)
	cfg.RefillInterval = time.Minute
	cfg.TTL = 10 * time.Minute
	l := newLocalLimiter(cfg)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	d, err := l.take(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, d.allowed)

	d, _ = l.take(context.Background(), "k")
	assert.False(t, d.allowed)
	assert.InDelta(t, time.Minute.Seconds(), d.retry.Seconds(), 1)

	now = now.Add(time.Minute)
	d, _ = l.take(context.Background(), "k")
	assert.True(t, d.allowed)

	now = now.Add(time.Hour)
	_, _ = l.take(context.Background(), "other")
	assert.NotContains(t, l.buckets, "k")
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")

	cfg := limitConfig(1)
	cfg.KeyStrategy = "ip_actor_route"
	assert.Equal(t, "rl:ip:10.0.0.1:actor:anon:route:POST /v1/bookings", buildRateKey(cfg, c))

	SetIdentity(c, model.Identity{ActorID: "c1", Role: model.RoleCustomer})
	cfg.KeyStrategy = "actor"
	assert.Equal(t, "rl:actor:c1", buildRateKey(cfg, c))
}
