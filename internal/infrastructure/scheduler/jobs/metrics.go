package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/peercall/peercall-hub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// PASS METRICS
// ══════════════════════════════════════════════════════════════════════════════

var (
	allocationUnmatched = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peercall",
		Subsystem: "matching",
		Name:      "allocation_unmatched_users",
		Help:      "Unmatched users seen by the last generation pass.",
	})

	allocationCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peercall",
		Subsystem: "matching",
		Name:      "matches_created_total",
		Help:      "Total matches created by generation passes.",
	})

	allocationDeferred = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peercall",
		Subsystem: "matching",
		Name:      "allocation_deferred_users",
		Help:      "Users deferred to the next pass by the last generation pass.",
	})

	allocationVolunteerRouted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peercall",
		Subsystem: "matching",
		Name:      "allocation_volunteer_routed_users",
		Help:      "Users routed to a volunteer call by the last generation pass.",
	})

	lifecyclePassProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peercall",
		Subsystem: "matching",
		Name:      "lifecycle_pass_processed_total",
		Help:      "Matches inspected by lifecycle passes.",
	}, []string{"pass"})

	lifecyclePassTransitioned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peercall",
		Subsystem: "matching",
		Name:      "lifecycle_pass_transitioned_total",
		Help:      "Matches transitioned by lifecycle passes.",
	}, []string{"pass"})
)

// observeGenerationPass exports generation pass outcomes.
func observeGenerationPass(stats query.AllocationStats) {
	allocationUnmatched.Set(float64(stats.UnmatchedUsers))
	allocationCreated.Add(float64(stats.MatchesCreated))
	allocationDeferred.Set(float64(stats.Deferred))
	allocationVolunteerRouted.Set(float64(stats.VolunteerRouted))
}

// observeLifecyclePass exports completion and auto-cancel pass outcomes.
func observeLifecyclePass(pass string, processed, transitioned int) {
	lifecyclePassProcessed.WithLabelValues(pass).Add(float64(processed))
	lifecyclePassTransitioned.WithLabelValues(pass).Add(float64(transitioned))
}
