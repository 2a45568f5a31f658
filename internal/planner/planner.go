// Package planner implements the mitigation planner (C6): a
// constraint-based, cost-minimizing assignment of workflow instances to
// alerts, per §4.6.
package planner

import (
	"context"
	"sort"
	"time"

	"mitigationengine/internal/condition"
	"mitigationengine/internal/metrics"
	"mitigationengine/internal/workflowcatalog"
	"mitigationengine/pkg/models"
)

// Planner searches for a minimum-cost feasible workflow assignment per
// alert, within a fixed slot count and wall-clock budget.
type Planner struct {
	workflows  *workflowcatalog.Catalog
	conditions *condition.Engine
	slots      int
	timeLimit  time.Duration
}

// New constructs a planner with the given defaults (§4.6: mitigationSlots
// default 10, timeLimit default 1s).
func New(workflows *workflowcatalog.Catalog, conditions *condition.Engine, slots int, timeLimit time.Duration) *Planner {
	if slots <= 0 {
		slots = 10
	}
	if timeLimit <= 0 {
		timeLimit = 1 * time.Second
	}
	return &Planner{workflows: workflows, conditions: conditions, slots: slots, timeLimit: timeLimit}
}

// Candidates generates the instantiable workflow candidates for alert a:
// every signature applicable to a (H1's target clause), whose args resolve
// and whose conditions are all met (H1's condition clause).
func (p *Planner) Candidates(ctx context.Context, a *models.Alert) []*models.WorkflowInstance {
	var out []*models.WorkflowInstance
	for _, sig := range p.workflows.Applicable(a) {
		resolved, ok := condition.ResolveArgs(sig.Args, a)
		if !ok {
			continue
		}
		if !p.conditions.AllMet(ctx, sig.Conditions, a) {
			continue
		}
		out = append(out, &models.WorkflowInstance{
			Signature:      sig,
			ResolvedParams: condition.MergeParams(sig.Params, resolved),
			CostFactor:     1.0,
		})
	}
	sortCandidates(out)
	return out
}

// PlanAlert is the core per-alert search of §4.6. It returns the chosen
// assignment (workflow nil means unmitigated) and, when no feasible
// assignment exists, a PlannerInfeasible error — the attack-graph state
// still advances; only dispatch is skipped.
func (p *Planner) PlanAlert(ctx context.Context, a *models.Alert) (*models.MitigationAssignment, error) {
	candidates := p.Candidates(ctx, a)
	assignment := &models.MitigationAssignment{Alert: a}
	if len(candidates) == 0 {
		metrics.PlannerOutcomes.WithLabelValues("infeasible").Inc()
		return assignment, &models.PlannerInfeasible{AlertDescription: a.Description}
	}

	deadline := time.Now().Add(p.timeLimit)
	best := branchAndBound(candidates, p.slots, deadline)
	assignment.Workflow = best
	metrics.PlannerOutcomes.WithLabelValues("feasible").Inc()
	return assignment, nil
}

// PlanBatch plans each alert in the batch independently — alerts share no
// resources in this problem structure (§4.6), so a batch decomposes without
// loss of optimality into per-alert searches, each under its own slot/time
// budget.
func (p *Planner) PlanBatch(ctx context.Context, alerts []*models.Alert) []*models.MitigationAssignment {
	out := make([]*models.MitigationAssignment, 0, len(alerts))
	for _, a := range alerts {
		assignment, _ := p.PlanAlert(ctx, a)
		out = append(out, assignment)
	}
	return out
}

// branchAndBound explores which of the (already H1-filtered) candidates to
// place in the fixed slot pool, bounding the search by cost (every branch
// that has already matched or exceeded the best known total is pruned) and
// by the wall-clock deadline. Because costs are non-negative and H2 only
// requires at least one filled slot, the optimum is reached by the first
// branch explored once candidates are cost-sorted — the search still walks
// the tree (rather than special-casing that fact) so additional hard
// constraints can be layered in later without restructuring the solver.
func branchAndBound(candidates []*models.WorkflowInstance, maxSlots int, deadline time.Time) *models.WorkflowInstance {
	if maxSlots > len(candidates) {
		maxSlots = len(candidates)
	}

	var (
		best     *models.WorkflowInstance
		bestCost int64 = -1
	)

	var explore func(i, slotsUsed int, currentCost int64, chosen *models.WorkflowInstance)
	explore = func(i, slotsUsed int, currentCost int64, chosen *models.WorkflowInstance) {
		if time.Now().After(deadline) {
			return
		}
		if chosen != nil && (best == nil || currentCost < bestCost) {
			best = chosen
			bestCost = currentCost
		}
		if i >= len(candidates) || slotsUsed >= maxSlots {
			return
		}
		if best != nil && currentCost >= bestCost {
			return // lower bound on this branch already meets or exceeds best
		}

		c := candidates[i]
		// Branch: fill the next slot with candidates[i].
		if chosen == nil {
			explore(i+1, slotsUsed+1, int64(c.EffectiveCost()), c)
		}
		// Branch: leave this candidate out, keep searching for a cheaper one.
		explore(i+1, slotsUsed, currentCost, chosen)
	}
	explore(0, 0, 0, nil)
	return best
}

// sortCandidates applies §4.6's determinism rule: ties broken by workflow
// ID ascending, then by parameter-map lexicographic order.
func sortCandidates(cands []*models.WorkflowInstance) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		ca, cb := a.EffectiveCost(), b.EffectiveCost()
		if ca != cb {
			return ca < cb
		}
		if a.Signature.ID != b.Signature.ID {
			return a.Signature.ID < b.Signature.ID
		}
		return paramsLexLess(a.ResolvedParams, b.ResolvedParams)
	})
}

func paramsLexLess(a, b map[string]interface{}) bool {
	ak := sortedKeys(a)
	bk := sortedKeys(b)
	for i := 0; i < len(ak) && i < len(bk); i++ {
		if ak[i] != bk[i] {
			return ak[i] < bk[i]
		}
		as := toComparableString(a[ak[i]])
		bs := toComparableString(b[bk[i]])
		if as != bs {
			return as < bs
		}
	}
	return len(ak) < len(bk)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toComparableString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return ""
	}
}
