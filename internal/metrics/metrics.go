package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "salespro"

var (
	// Request metrics
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path"},
	)

	APIErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API errors",
		},
		[]string{"method", "path", "status"},
	)

	// Domain metrics
	OrdersCreatedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of orders created",
	})

	ProductsImportedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_imported_total",
			Help:      "Total import rows by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware tracks request counts, durations and error counts per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		APIRequestCounter.With(prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
		}).Inc()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		RequestDurationHistogram.With(prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
			"status": status,
		}).Observe(time.Since(start).Seconds())

		if c.Writer.Status() >= 400 {
			APIErrorCounter.With(prometheus.Labels{
				"method": c.Request.Method,
				"path":   path,
				"status": status,
			}).Inc()
		}
	}
}

// Handler exposes the Prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordImport tracks one import pass outcome breakdown.
func RecordImport(inserted, duplicates, invalid int) {
	ProductsImportedCounter.With(prometheus.Labels{"outcome": "inserted"}).Add(float64(inserted))
	ProductsImportedCounter.With(prometheus.Labels{"outcome": "duplicate"}).Add(float64(duplicates))
	ProductsImportedCounter.With(prometheus.Labels{"outcome": "invalid"}).Add(float64(invalid))
}
