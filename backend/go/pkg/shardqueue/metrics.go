package shardqueue

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// queueDepth is only written from the owning worker goroutine.
var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "shardqueue",
			Name:      "submissions_total",
			Help:      "Jobs accepted for execution.",
		},
		[]string{"shard"},
	)

	queueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "shardqueue",
			Name:      "queue_full_total",
			Help:      "Enqueue attempts that timed out on a full shard.",
		},
		[]string{"shard"},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "shardqueue",
			Name:      "failures_total",
			Help:      "Jobs that gave up after retries or failed permanently.",
		},
		[]string{"shard"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mentor",
			Subsystem: "shardqueue",
			Name:      "run_duration_seconds",
			Help:      "Job execution latency per attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mentor",
			Subsystem: "shardqueue",
			Name:      "queue_depth",
			Help:      "Current depth of each shard queue.",
		},
		[]string{"shard"},
	)
)

func labelFor(i int) string { return strconv.Itoa(i) }
