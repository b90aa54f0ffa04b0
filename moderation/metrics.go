package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enforcementActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicewarden",
			Subsystem: "moderation",
			Name:      "enforcement_actions_total",
			Help:      "Moderation commands enqueued, by action.",
		},
		[]string{"action"},
	)
	rotationEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicewarden",
			Subsystem: "moderation",
			Name:      "rotation_evictions_total",
			Help:      "Oldest-entry evictions caused by list capacity, by list.",
		},
		[]string{"list"},
	)
	votesCast = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voicewarden",
			Subsystem: "moderation",
			Name:      "votes_cast_total",
			Help:      "Distinct vote-ban votes accepted.",
		},
	)
)
