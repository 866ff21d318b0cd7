package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/logging"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// CatalogPath is where not-found responses point the client.
const CatalogPath = "/v1/listings"

const defaultTimeout = 5 * time.Second

// withTimeout bounds store calls made on behalf of the request.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// fail writes err using the service error taxonomy.  Persistence failures
// are logged here and reported without detail.
func fail(c echo.Context, component, operation string, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		if middleware.IdentityFrom(c).Anonymous() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error(), "redirect": CatalogPath})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	rid, _ := c.Get("request_id").(string)
	logging.LogError(err, rid, component, operation)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}
