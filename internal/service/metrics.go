package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkout outcomes.
const (
	outcomeSucceeded = "succeeded"
	outcomeDeclined  = "declined"
	outcomeError     = "error"
	outcomeStale     = "stale"
)

var (
	checkoutOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mall_checkout_payments_total",
		Help: "Resolved payment attempts by method and outcome.",
	}, []string{"method", "outcome"})

	checkoutDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mall_checkout_provider_duration_seconds",
		Help:    "Time spent in payment provider calls per attempt.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	checkoutsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mall_checkout_in_flight",
		Help: "Payment attempts scheduled or running.",
	})
)
