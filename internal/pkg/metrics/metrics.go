package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickgate_ticks_total",
		Help: "The total number of strategy tick attempts by terminal classification",
	}, []string{"status", "reason"})

	TickLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickgate_tick_latency_seconds",
		Help:    "Tick execution latency in seconds, measured from attempt start",
		Buckets: prometheus.DefBuckets,
	}, []string{"exchange"})

	RiskBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickgate_risk_blocks_total",
		Help: "Total admission-control blocks by reason",
	}, []string{"reason"})

	BreakerTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickgate_breaker_trips_total",
		Help: "Total strategy runs auto-paused by the circuit breaker",
	})

	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickgate_sweeps_total",
		Help: "Total scheduler sweeps executed",
	})

	SweepDue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tickgate_sweep_due_strategies",
		Help:    "Number of due strategy runs per sweep",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickgate_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
