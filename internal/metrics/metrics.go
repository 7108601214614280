// Package metrics holds Prometheus instruments shared across the gateway.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Requests seen by the gateway, by routing class.",
		},
		[]string{"class"})

	ResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tenant_resolve_total",
			Help: "Tenant resolutions by outcome (found, not_found, error).",
		},
		[]string{"outcome"})

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_tenant_cache_hits_total",
			Help: "Tenant lookups answered from the outcome cache.",
		})

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_tenant_cache_misses_total",
			Help: "Tenant lookups that fell through to the store.",
		})

	RateLimitDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_ratelimit_denied_total",
			Help: "Requests denied by the rate limiter, by policy.",
		},
		[]string{"policy"})

	CachedOutcomes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_tenant_cache_entries",
			Help: "Number of subdomain outcomes currently cached.",
		})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		ResolveTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		RateLimitDeniedTotal,
		CachedOutcomes,
	)
}
