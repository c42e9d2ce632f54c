// Package metrics registers Prometheus collectors for the temporal evaluators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluatorRuns counts evaluator sweeps by kind and outcome.
	EvaluatorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeslice",
		Name:      "evaluator_runs_total",
		Help:      "Temporal evaluator sweeps, labeled by evaluator and outcome.",
	}, []string{"evaluator", "outcome"})

	// PenaltiesApplied counts automatic penalty steps applied to slices.
	PenaltiesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeslice",
		Name:      "penalties_applied_total",
		Help:      "Automatic penalty steps applied, labeled by slice slug.",
	}, []string{"slug"})

	// DecayEvents counts component decay writes.
	DecayEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lifeslice",
		Name:      "component_decay_events_total",
		Help:      "Component decay updates written by the decay evaluator.",
	})

	// SliceUpdates counts user-initiated slice updates by delta type.
	SliceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeslice",
		Name:      "slice_updates_total",
		Help:      "User-initiated slice updates, labeled by delta type.",
	}, []string{"delta_type"})
)
