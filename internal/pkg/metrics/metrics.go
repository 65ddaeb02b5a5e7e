package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deaglo_api_latency_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	SimulationsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deaglo_simulations_enqueued_total",
		Help: "Simulation jobs sent to the core queue",
	}, []string{"type", "outcome"})

	PricingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deaglo_pricing_request_seconds",
		Help:    "Latency of FENICS pricing requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"query", "outcome"})

	ThrottledRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deaglo_throttled_requests_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"scope"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deaglo_emails_total",
		Help: "Transactional e-mails by outcome",
	}, []string{"template", "outcome"})
)
