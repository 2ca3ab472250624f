// Package metrics exposes the pipeline's operational counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexus",
		Subsystem: "resolution",
		Name:      "outcomes_total",
		Help:      "Resolution outcomes by final disposition.",
	}, []string{"outcome"})

	AdjudicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexus",
		Subsystem: "adjudicator",
		Name:      "verdicts_total",
		Help:      "Adjudicator verdicts by kind, including failures.",
	}, []string{"kind"})

	ScoringDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nexus",
		Subsystem: "scorer",
		Name:      "degraded_total",
		Help:      "Resolutions scored with one or more signals unavailable.",
	})

	DeadLettersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nexus",
		Subsystem: "merge",
		Name:      "dead_letters_total",
		Help:      "Candidates whose graph writes exhausted all retries.",
	})

	RelationshipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexus",
		Subsystem: "relate",
		Name:      "edges_total",
		Help:      "Inferred relationship edges by gate outcome.",
	}, []string{"gate"})

	ReviewPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexus",
		Subsystem: "review",
		Name:      "pending_items",
		Help:      "Review queue depth.",
	})
)
