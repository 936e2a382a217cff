package decode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syndec",
			Subsystem: "decode",
			Name:      "shots_total",
			Help:      "Total number of decoded shots",
		},
		// status: ok/failed
		[]string{"backend", "status"},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syndec",
			Subsystem: "decode",
			Name:      "failures_total",
			Help:      "Shots coerced to parity 0, by reason",
		},
		[]string{"backend", "reason"},
	)

	shotDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "syndec",
			Subsystem: "decode",
			Name:      "shot_duration_seconds",
			Help:      "Duration of one shot from syndrome to parity",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		},
		[]string{"backend"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syndec",
			Subsystem: "decode",
			Name:      "cache_lookups_total",
			Help:      "Prediction cache lookups",
		},
		// result: hit/miss
		[]string{"result"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "syndec",
			Subsystem: "decode",
			Name:      "active_workers",
			Help:      "Number of currently running decode workers",
		},
	)
)
