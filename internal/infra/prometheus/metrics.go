package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect outcome labels.
const (
	OutcomeResolved = "resolved"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeFallback = "fallback"
)

// Cache lookup result labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// RedirectsTotal counts redirect requests by outcome.
	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ziplink_redirects_total",
		Help: "Redirect requests by outcome.",
	}, []string{"outcome"})

	// CacheLookups counts link cache reads by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ziplink_cache_lookups_total",
		Help: "Link cache lookups by result.",
	}, []string{"result"})

	// PublishFailures counts click records lost at the enqueue boundary.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ziplink_click_publish_failures_total",
		Help: "Click dispatch envelopes that failed to enqueue.",
	})

	// DispatchDeliveries counts webhook deliveries by status.
	DispatchDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ziplink_click_dispatch_deliveries_total",
		Help: "Webhook deliveries attempted by the dispatcher, by status.",
	}, []string{"status"})
)
