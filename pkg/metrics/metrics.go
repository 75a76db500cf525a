package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	ContentUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "content_updates_total", Help: "Content update pipeline runs by mode (complete|incremental|rejected) and outcome."},
		[]string{"mode", "outcome"},
	)
	ContentPageUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "content_page_updates_total", Help: "Per-page incremental updates by status."},
		[]string{"status"},
	)
	ContentRevalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "content_revalidations_total", Help: "Route revalidation calls by status."},
		[]string{"status"},
	)
	ContentCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "content_cache_lookups_total", Help: "Content read cache lookups by result (hit|miss)."},
		[]string{"cache", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(ContentUpdates)
	reg.MustRegister(ContentPageUpdates)
	reg.MustRegister(ContentRevalidations)
	reg.MustRegister(ContentCacheLookups)
}
