package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "mentor",
	Subsystem: "llm",
	Name:      "circuit_breaker_state",
	Help:      "0 closed, 1 open, 2 half-open.",
}, []string{"provider"})
