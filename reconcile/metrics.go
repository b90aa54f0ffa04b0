package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var repliesReconciled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voicewarden",
		Subsystem: "reconcile",
		Name:      "replies_total",
		Help:      "Bot replies processed, by classified kind.",
	},
	[]string{"kind"},
)
