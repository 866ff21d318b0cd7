package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Business metrics
	ActorsRegistered   *prometheus.CounterVec
	ListingsCreated    prometheus.Counter
	BookingTransitions *prometheus.CounterVec
	ReviewsSubmitted   prometheus.Counter
	EventsPublished    *prometheus.CounterVec
}

var (
	metrics *Metrics
	once    sync.Once
)

// Init initializes all Prometheus metrics
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path"},
			),
			HTTPRequestsInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_requests_in_flight",
					Help: "Number of HTTP requests currently being processed",
				},
			),
			RateLimitHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_hits_total",
					Help: "Total number of requests rejected by the rate limiter",
				},
				[]string{"route"},
			),
			ActorsRegistered: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "marketplace_actors_registered_total",
					Help: "Total number of registered actors",
				},
				[]string{"role"},
			),
			ListingsCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "marketplace_listings_created_total",
					Help: "Total number of listings created",
				},
			),
			BookingTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "marketplace_booking_transitions_total",
					Help: "Booking engine calls by action and outcome",
				},
				[]string{"action", "result"},
			),
			ReviewsSubmitted: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "marketplace_reviews_submitted_total",
					Help: "Total number of reviews submitted",
				},
			),
			EventsPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "marketplace_events_published_total",
					Help: "Booking events handed to the broker",
				},
				[]string{"type", "status"},
			),
		}
	})
	return metrics
}

// Get returns the global metrics instance
func Get() *Metrics { return Init() }

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware collects HTTP metrics labelled by the matched route pattern.
func Middleware() echo.MiddlewareFunc {
	m := Get()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			err := next(c)
			if err != nil {
				// Let Echo write the response so the status is final.
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// RecordRateLimitHit records a rejected request
func RecordRateLimitHit(route string) {
	Get().RateLimitHits.WithLabelValues(route).Inc()
}

// RecordActorRegistered records a registration
func RecordActorRegistered(role string) {
	Get().ActorsRegistered.WithLabelValues(role).Inc()
}

// RecordListingCreated records a new listing
func RecordListingCreated() {
	Get().ListingsCreated.Inc()
}

// RecordBookingTransition records a booking engine call.  result is
// "ok", "noop" or the error class.
func RecordBookingTransition(action, result string) {
	Get().BookingTransitions.WithLabelValues(action, result).Inc()
}

// RecordReviewSubmitted records a review
func RecordReviewSubmitted() {
	Get().ReviewsSubmitted.Inc()
}

// RecordEventPublished records a broker publish attempt
func RecordEventPublished(eventType, status string) {
	Get().EventsPublished.WithLabelValues(eventType, status).Inc()
}
