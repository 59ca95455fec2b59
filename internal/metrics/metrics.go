package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	OrdersFulfilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_fulfilled_total",
		Help: "Orders persisted after a completed payment session.",
	})

	FulfillmentDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_duplicate_events_total",
		Help: "Completion events discarded by the idempotency guard.",
	})

	CodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "access_codes_issued_total",
		Help: "Access codes generated during fulfillment.",
	})

	CodesRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "access_codes_redeemed_total",
		Help: "Access codes checked in at the door.",
	})
)

// Middleware records request latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
