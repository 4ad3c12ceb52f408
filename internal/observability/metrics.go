package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introvert_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "introvert_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "introvert_ws_active_connections",
			Help: "Number of open realtime connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introvert_ws_events_total",
			Help: "Inbound realtime events by name and handling result.",
		},
		[]string{"event", "result"},
	)
	droppedDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introvert_dropped_deliveries_total",
			Help: "Outbound events dropped because a connection buffer was full.",
		},
		[]string{"event"},
	)
	matchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introvert_match_outcomes_total",
			Help: "Matchmaking request outcomes.",
		},
		[]string{"status"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introvert_notifications_total",
			Help: "Notifications created, split by live delivery.",
		},
		[]string{"type", "delivered"},
	)
	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "introvert_rate_limited_total",
			Help: "API requests rejected by the rate limiter.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "introvert_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		droppedDeliveriesTotal,
		matchOutcomesTotal,
		notificationsTotal,
		rateLimitedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

// IncWSEvent counts an inbound event; result is "handled" or "dropped".
func IncWSEvent(event, result string) {
	wsEventsTotal.WithLabelValues(event, result).Inc()
}

func IncDroppedDelivery(event string) {
	droppedDeliveriesTotal.WithLabelValues(event).Inc()
}

func IncMatchOutcome(status string) {
	matchOutcomesTotal.WithLabelValues(status).Inc()
}

func IncNotification(kind string, delivered bool) {
	notificationsTotal.WithLabelValues(kind, strconv.FormatBool(delivered)).Inc()
}

func IncRateLimited() {
	rateLimitedTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
