package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	responsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentor",
		Name:      "responses_total",
		Help:      "Mentor responses by final state and error kind.",
	}, []string{"state", "error_kind"})

	responseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mentor",
		Name:      "response_duration_seconds",
		Help:      "Time from request to the terminal stream event.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	extractionDispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mentor",
		Name:      "extraction_dispatch_failures_total",
		Help:      "Extraction jobs that could not be queued.",
	})
)
