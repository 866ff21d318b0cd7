package logging

import (
	"io"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/service-marketplace/internal/config"
)

// Setup initializes the global logger based on configuration
func Setup(cfg config.LogConfig, env string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer
	if cfg.Format == "json" || env == "production" {
		output = os.Stdout
	} else {
		// Pretty console output for development
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "marketplace").
		Logger()
}

// NewLogger creates a new logger with additional context
func NewLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// RequestLogger is an Echo middleware for structured request logging.
// It expects the request-id middleware to run first and reads the actor
// resolved by the JWT middleware when present.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			event := log.Info()
			if res.Status >= 500 {
				event = log.Error()
			} else if res.Status >= 400 {
				event = log.Warn()
			}

			requestID, _ := c.Get("request_id").(string)
			actorID, _ := c.Get("actor_id").(string)
			event.
				Str("request_id", requestID).
				Str("actor_id", actorID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("query", req.URL.RawQuery).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("client_ip", c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Int64("body_size", res.Size).
				Msg("HTTP request")
			return nil
		}
	}
}

// LogError logs an error with context
func LogError(err error, requestID, component, operation string) {
	log.Error().
		Err(err).
		Str("request_id", requestID).
		Str("component", component).
		Str("operation", operation).
		Msg("Error occurred")
}
