package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	CheckoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "sessions_total",
			Help:      "Checkout session attempts by result.",
		},
		[]string{"result"},
	)

	// TransitionsTotal counts reconciliation attempts; applied="false" are replays.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "order_transitions_total",
			Help:      "Order status transition attempts by source, target status and outcome.",
		},
		[]string{"source", "to", "applied"},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by event type and result.",
		},
		[]string{"type", "result"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of payment gateway calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "catalog_cache_hits_total",
			Help:      "Menu item lookups served from the cache.",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			CheckoutSessionsTotal,
			TransitionsTotal,
			WebhookEventsTotal,
			GatewayRequestDuration,
			CatalogCacheHitsTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
