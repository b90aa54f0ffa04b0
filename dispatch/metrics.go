package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pendingCommands = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "voicewarden",
			Subsystem: "dispatch",
			Name:      "pending_commands",
			Help:      "Number of commands waiting to be sent, by class.",
		},
		[]string{"class"},
	)
	commandsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voicewarden",
			Subsystem: "dispatch",
			Name:      "commands_sent_total",
			Help:      "Number of commands successfully sent to the bot.",
		},
	)
	commandsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicewarden",
			Subsystem: "dispatch",
			Name:      "commands_dropped_total",
			Help:      "Number of commands dropped before or during send.",
		},
		[]string{"reason"},
	)
)
