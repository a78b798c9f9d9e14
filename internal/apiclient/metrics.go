package apiclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	logouts  prometheus.Counter
}

// route 用模板（/jobs/:id/details），避免 id 撑爆 label
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skilllink_api_requests_total",
			Help: "Outbound SkillLink API calls by route and status",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skilllink_api_request_duration_seconds",
			Help:    "Latency of outbound SkillLink API calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "skilllink_api_forced_logouts_total",
			Help: "401/403 responses that cleared the persisted token",
		}),
	}
}
