package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduler metrics. Registered on the default registry and served by the
// /metrics endpoint.
var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pemilu",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Number of scheduler tick evaluations.",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pemilu",
		Subsystem: "scheduler",
		Name:      "transitions_total",
		Help:      "Number of committed turn transitions by action.",
	}, []string{"action"})

	lostRacesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pemilu",
		Subsystem: "scheduler",
		Name:      "lost_races_total",
		Help:      "Number of transitions absorbed because another caller committed first.",
	})

	selectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pemilu",
		Subsystem: "scheduler",
		Name:      "selections_total",
		Help:      "Number of committed listing selections.",
	})
)
