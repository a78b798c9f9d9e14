package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 指标注册到 reg；每个 engine 用自己的 registerer，测试里不会重复注册
func Metrics(reg prometheus.Registerer) gin.HandlerFunc {
	f := promauto.With(reg)
	total := f.NewCounterVec(
		prometheus.CounterOpts{Name: "skilllink_console_requests_total", Help: "Count of console HTTP requests"},
		[]string{"path", "method", "code"},
	)
	latency := f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skilllink_console_request_duration_seconds",
			Help:    "Latency of console HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"},
	)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		if v, ok := c.Get(KeyCode); ok {
			if n, ok := v.(int); ok {
				code = strconv.Itoa(n)
			}
		}
		total.WithLabelValues(path, c.Request.Method, code).Inc()
		latency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
