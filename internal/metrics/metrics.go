package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devvault_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// NotificationsCreated counts persisted notifications by type
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devvault_notifications_created_total",
			Help: "Number of notifications persisted",
		},
		[]string{"type"},
	)

	NotificationCreateFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devvault_notification_create_failures_total",
			Help: "Number of notifications that could not be persisted",
		},
	)

	// PushDelivered counts events handed to a live connection's send buffer
	PushDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devvault_realtime_events_delivered_total",
			Help: "Number of real-time events queued to a connection",
		},
	)

	// PushDropped counts events dropped because a connection's buffer was full
	PushDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devvault_realtime_events_dropped_total",
			Help: "Number of real-time events dropped for slow connections",
		},
	)

	LiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "devvault_realtime_connections",
			Help: "Number of open real-time connections",
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCount,
			RequestDuration,
			NotificationsCreated,
			NotificationCreateFailures,
			PushDelivered,
			PushDropped,
			LiveConnections,
		)
	})
}

// Middleware records request count and latency per route template
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			RequestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
			RequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
