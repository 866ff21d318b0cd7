package handler // declare the package name; contains HTTP handlers

import (
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// HealthHandler answers load balancer probes.  It reports the configured
// store backend and how long the process has been serving.
type HealthHandler struct {
	Store   string
	Started time.Time
}

func NewHealthHandler(store string) *HealthHandler {
	return &HealthHandler{Store: store, Started: time.Now()}
}

// Health returns 200 with a small JSON status document.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":         "ok",
		"store":          h.Store,
		"uptime_seconds": int64(time.Since(h.Started).Seconds()),
	})
}
