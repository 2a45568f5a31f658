// Package metrics exposes prometheus collectors for the mitigation engine.
// The teacher repository declares prometheus/client_golang in its go.mod
// but never imports it; this package is where that dependency actually
// gets exercised, pointed at the engine's own events.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AlertsProcessed counts alerts the worker has stepped through the
	// attack-instance engine.
	AlertsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mitigationengine_alerts_processed_total",
		Help: "Total number of alerts processed by the alert worker.",
	})

	// InstancesCreated counts attack instances spawned by an initial-node
	// match.
	InstancesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mitigationengine_attack_instances_created_total",
		Help: "Total number of attack instances spawned.",
	})

	// InstancesTerminated counts attack instances removed on empty front.
	InstancesTerminated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mitigationengine_attack_instances_terminated_total",
		Help: "Total number of attack instances terminated on empty front.",
	})

	// PlannerOutcomes counts planner results by feasibility.
	PlannerOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mitigationengine_planner_outcomes_total",
		Help: "Planner outcomes by result (feasible, infeasible).",
	}, []string{"result"})

	// DispatchOutcomes counts webhook dispatches by result.
	DispatchOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mitigationengine_dispatch_outcomes_total",
		Help: "Webhook dispatch outcomes by result (success, failure).",
	}, []string{"result"})

	// DispatchLatency observes webhook dispatch latency in seconds.
	DispatchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mitigationengine_dispatch_latency_seconds",
		Help:    "Webhook dispatch latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)

// Register adds all collectors to the given registry. Call once at boot.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		AlertsProcessed, InstancesCreated, InstancesTerminated,
		PlannerOutcomes, DispatchOutcomes, DispatchLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
