// Package attackinstance implements the attack-instance engine (C4): for
// each attack-graph template, the set of live instances and their fronts,
// advanced one alert at a time.
package attackinstance

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"mitigationengine/internal/condition"
	"mitigationengine/internal/graphcatalog"
	"mitigationengine/internal/metrics"
	"mitigationengine/pkg/models"
)

// Engine owns the live instance population exclusively; it is intended to
// be driven by a single alert worker (§4.4's concurrency note), so its
// internal lock exists only to let read-only callers (e.g. the HTTP API)
// inspect state between steps without racing the worker.
type Engine struct {
	mu         sync.Mutex
	graphs     *graphcatalog.Catalog
	conditions *condition.Engine
	instances  map[string][]*models.AttackInstance // template ID -> instances, creation order
	fireCounts map[string]map[string]int           // template ID -> node ID -> lifetime fire count
}

// New constructs an attack-instance engine over the given template catalog
// and condition evaluator.
func New(graphs *graphcatalog.Catalog, conditions *condition.Engine) *Engine {
	return &Engine{
		graphs:     graphs,
		conditions: conditions,
		instances:  map[string][]*models.AttackInstance{},
		fireCounts: map[string]map[string]int{},
	}
}

// FireCount reports how many times a node has fired across the engine's
// lifetime, for any instance of its template. It implements
// planner.RiskTracker, letting probability-weighted planning treat a
// frequently-firing node as historically risky regardless of which live
// instance currently holds it.
func (e *Engine) FireCount(templateID, nodeID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fireCounts[templateID][nodeID]
}

func (e *Engine) recordFire(templateID, nodeID string) {
	byNode := e.fireCounts[templateID]
	if byNode == nil {
		byNode = map[string]int{}
		e.fireCounts[templateID] = byNode
	}
	byNode[nodeID]++
}

// FrontNodes resolves an instance's current front node IDs to their
// AttackNode objects, for callers (probability-weighted planning) that need
// more than the bare ID.
func (e *Engine) FrontNodes(templateID, instanceID string) []*models.AttackNode {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.graphs.Get(templateID)
	if !ok {
		return nil
	}
	for _, inst := range e.instances[templateID] {
		if inst.ID != instanceID {
			continue
		}
		out := make([]*models.AttackNode, 0, len(inst.Front))
		for _, id := range inst.Front {
			if n, ok := g.Nodes[id]; ok {
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}

// Step performs one advancement pass of alert a against every template, per
// §4.4. It returns the node-triggered events in the tie-break order
// mandated there. The caller (the alert worker) must invoke Step for
// successive alerts strictly in arrival order.
func (e *Engine) Step(ctx context.Context, a *models.Alert) []models.NodeTrigger {
	e.mu.Lock()
	defer e.mu.Unlock()

	var triggers []models.NodeTrigger
	for _, g := range e.graphs.Snapshot() {
		triggers = append(triggers, e.stepTemplate(ctx, g, a)...)
	}
	return triggers
}

func (e *Engine) stepTemplate(ctx context.Context, g *models.AttackGraph, a *models.Alert) []models.NodeTrigger {
	var triggers []models.NodeTrigger

	live := e.instances[g.ID]
	kept := make([]*models.AttackInstance, 0, len(live))
	for _, inst := range live {
		newFront, instTriggers := e.advanceFront(ctx, g, inst.Front, inst.ID, a)
		triggers = append(triggers, instTriggers...)

		if !sameSet(newFront, inst.Front) {
			inst.Ctx = append([]*models.Alert{a}, inst.Ctx...)
			inst.Front = newFront
		}
		if len(newFront) > 0 {
			kept = append(kept, inst)
		} else {
			metrics.InstancesTerminated.Inc()
		}
	}
	e.instances[g.ID] = kept

	n0, ok := g.Nodes[g.Initial]
	if !ok {
		return triggers
	}
	fired, next := advance(e.conditions, ctx, n0, a)
	if fired {
		e.recordFire(g.ID, n0.ID)
		triggers = append(triggers, models.NodeTrigger{Template: g.ID, Node: n0, Alert: a})
		if len(next) > 0 {
			inst := &models.AttackInstance{
				ID:       uuid.NewString(),
				Template: g.ID,
				Ctx:      []*models.Alert{a},
				Front:    next,
			}
			e.instances[g.ID] = append(e.instances[g.ID], inst)
			metrics.InstancesCreated.Inc()
			for i := range triggers {
				if triggers[i].Node == n0 && triggers[i].Alert == a && triggers[i].Instance == "" {
					triggers[i].Instance = inst.ID
				}
			}
		}
	}
	return triggers
}

// advanceFront computes ⋃{advance(n, a) | n ∈ front}, deduplicated while
// preserving first-seen order, and the trigger events produced along the
// way — both in the enumeration order of front (§4.4's tie-break rule).
func (e *Engine) advanceFront(ctx context.Context, g *models.AttackGraph, front []string, instanceID string, a *models.Alert) ([]string, []models.NodeTrigger) {
	var (
		newFront []string
		seen     = map[string]struct{}{}
		triggers []models.NodeTrigger
	)
	for _, nodeID := range front {
		n, ok := g.Nodes[nodeID]
		if !ok {
			continue
		}
		fired, next := advance(e.conditions, ctx, n, a)
		if fired {
			e.recordFire(g.ID, n.ID)
			triggers = append(triggers, models.NodeTrigger{Template: g.ID, Instance: instanceID, Node: n, Alert: a})
		}
		for _, id := range next {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			newFront = append(newFront, id)
		}
	}
	return newFront, triggers
}

// advance implements §4.4's per-node transition: on a technique match with
// all conditions met, it "fires" and emits the node's successors (or no IDs
// at all, if the node is terminal — callers must treat that as removing
// the branch, not as a self-loop, per the terminate-on-empty-successors
// resolution of §9's open question). Otherwise the node holds the front in
// place by emitting itself.
func advance(conditions *condition.Engine, ctx context.Context, n *models.AttackNode, a *models.Alert) (fired bool, nextIDs []string) {
	if !a.HasTechnique(n.Technique) {
		return false, []string{n.ID}
	}
	if !conditions.AllMet(ctx, n.Conditions, a) {
		return false, []string{n.ID}
	}
	return true, append([]string(nil), n.Next...)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := map[string]int{}
	for _, x := range a {
		counts[x]++
	}
	for _, x := range b {
		counts[x]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// Instances returns a snapshot of the live instances for a template, in
// creation order, for inspection or testing.
func (e *Engine) Instances(templateID string) []*models.AttackInstance {
	e.mu.Lock()
	defer e.mu.Unlock()
	live := e.instances[templateID]
	out := make([]*models.AttackInstance, len(live))
	copy(out, live)
	return out
}
