package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var joinDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voicewarden",
		Subsystem: "pipeline",
		Name:      "join_decisions_total",
		Help:      "Decisive join evaluations, by handler and verdict.",
	},
	[]string{"handler", "verdict"},
)
