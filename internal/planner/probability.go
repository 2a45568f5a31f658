package planner

import (
	"context"

	"mitigationengine/pkg/models"
)

// RiskTracker answers whether a node has fired often enough across past
// instances of its template to be considered historically risky. The
// attack-instance engine maintains fire counts; the planner only consults
// them.
type RiskTracker interface {
	FireCount(templateID, nodeID string) int
}

// ProbabilityPlan is the optional three-phase mitigation mode carried
// forward from the original source's mitigate_attack: past nodes that have
// proven historically risky, the present node the current alert actually
// matched, and future nodes whose modeled probability of firing next
// exceeds a threshold each get their own independent planning pass. It is
// additive over the base single-node contract of §4.6 — with no historically
// risky or high-probability nodes it degenerates to exactly one PlanAlert
// call for the present node's alert.
type ProbabilityPlan struct {
	Planner              *Planner
	Risk                 RiskTracker
	RiskyFireThreshold   int
	ProbabilityThreshold float64
}

// Apply runs the three-phase strategy for a single advancement step and
// returns one assignment per phase-selected node, each independently
// planned and ready for dispatch.
func (pp *ProbabilityPlan) Apply(ctx context.Context, templateID string, front []*models.AttackNode, presentNode *models.AttackNode, alert *models.Alert) []*models.MitigationAssignment {
	var assignments []*models.MitigationAssignment

	seen := map[string]bool{}
	plan := func(n *models.AttackNode) {
		if n == nil || seen[n.ID] {
			return
		}
		seen[n.ID] = true
		assignment, _ := pp.Planner.PlanAlert(ctx, alert)
		assignments = append(assignments, assignment)
	}

	for _, n := range front {
		if n == presentNode {
			continue
		}
		if pp.Risk != nil && pp.Risk.FireCount(templateID, n.ID) >= pp.RiskyFireThreshold {
			plan(n)
		}
	}

	if presentNode != nil {
		plan(presentNode)
	}

	for _, n := range front {
		if n == presentNode || seen[n.ID] {
			continue
		}
		if n.Probability > pp.ProbabilityThreshold {
			plan(n)
		}
	}

	return assignments
}
