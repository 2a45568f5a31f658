// Package worker implements the single alert worker of §5: it drains the
// inbound alert queue and drives the attack-instance engine strictly in
// arrival order, then hands each alert's planning and dispatch off to run
// concurrently with the next iteration.
package worker

import (
	"context"

	"mitigationengine/internal/alert"
	"mitigationengine/internal/attackinstance"
	"mitigationengine/internal/dispatcher"
	"mitigationengine/internal/logger"
	"mitigationengine/internal/metrics"
	"mitigationengine/internal/planner"
	"mitigationengine/pkg/models"
)

// AlertSource is the ingress boundary: something that yields the next raw
// alert document, blocking until one is available or ctx is done.
type AlertSource interface {
	Next(ctx context.Context) (*models.RawAlert, error)
}

// Worker is the process's one dedicated alert worker.
type Worker struct {
	source      AlertSource
	schema      alert.Schema
	engine      *attackinstance.Engine
	planner     *planner.Planner
	dispatcher  *dispatcher.Dispatcher
	probability *planner.ProbabilityPlan
}

// New constructs the alert worker using the base single-node planning
// contract of §4.6.
func New(source AlertSource, schema alert.Schema, engine *attackinstance.Engine, p *planner.Planner, d *dispatcher.Dispatcher) *Worker {
	return &Worker{source: source, schema: schema, engine: engine, planner: p, dispatcher: d}
}

// WithProbabilityMode enables the three-phase past/present/future planning
// mode for every node a step triggers on behalf of an attack instance,
// instead of one PlanAlert call per alert. A trigger with no instance (an
// initial node without successors) is not planned in this mode.
func (w *Worker) WithProbabilityMode(pp *planner.ProbabilityPlan) *Worker {
	w.probability = pp
	return w
}

// Run drains the inbound queue until ctx is cancelled. Each non-fatal
// per-alert error is logged and the loop continues (§7's propagation
// rule).
func (w *Worker) Run(ctx context.Context) {
	for {
		raw, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("alert source error: %v", err)
			continue
		}
		if raw == nil {
			continue
		}
		w.handle(ctx, raw)
	}
}

func (w *Worker) handle(ctx context.Context, raw *models.RawAlert) {
	a, err := alert.Normalize(raw, w.schema)
	if err != nil {
		logger.Warnf("dropping malformed alert: %v", err)
		return
	}

	triggers := w.engine.Step(ctx, a)
	metrics.AlertsProcessed.Inc()
	for _, t := range triggers {
		logger.Debugf("node %s triggered by alert %q (instance=%s)", t.Node.ID, a.Description, t.Instance)
	}

	// Planning and dispatch for this alert may run concurrently with the
	// worker's next iteration — the attack-graph mutation above has
	// already committed.
	go w.planAndDispatch(ctx, a, triggers)
}

func (w *Worker) planAndDispatch(ctx context.Context, a *models.Alert, triggers []models.NodeTrigger) {
	if w.probability == nil {
		w.planAndDispatchSingle(ctx, a)
		return
	}
	for _, t := range triggers {
		if t.Instance == "" {
			continue
		}
		front := w.engine.FrontNodes(t.Template, t.Instance)
		assignments := w.probability.Apply(ctx, t.Template, front, t.Node, a)
		if outs := w.dispatcher.DispatchAll(ctx, assignments); len(outs) == 0 {
			logger.Debugf("alert %q triggered instance %s with no mitigation candidates", a.Description, t.Instance)
		}
	}
}

func (w *Worker) planAndDispatchSingle(ctx context.Context, a *models.Alert) {
	assignment, err := w.planner.PlanAlert(ctx, a)
	if err != nil {
		logger.Warnf("alert %q unmitigated: %v", a.Description, err)
		return
	}
	if assignment.Workflow == nil {
		return
	}
	if derr := w.dispatcher.Dispatch(ctx, assignment.Workflow); derr != nil {
		logger.Errorf("dispatch failed for alert %q: %v", a.Description, derr)
	}
}
