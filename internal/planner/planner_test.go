package planner

import (
	"context"
	"testing"
	"time"

	"mitigationengine/internal/condition"
	"mitigationengine/internal/workflowcatalog"
	"mitigationengine/pkg/models"
)

func TestPlanAlertChoosesMinimumCost(t *testing.T) {
	wc := workflowcatalog.New()
	conds := condition.NewEngine(nil)
	must := func(s *models.WorkflowSignature) {
		if err := wc.Put(s); err != nil {
			t.Fatalf("put signature: %v", err)
		}
	}
	must(&models.WorkflowSignature{ID: "wf-expensive", URL: "http://example/expensive", Target: "T1041", Cost: 5})
	must(&models.WorkflowSignature{ID: "wf-cheap", URL: "http://example/cheap", Target: "T1041", Cost: 1})

	p := New(wc, conds, 10, 1*time.Second)
	assignment, err := p.PlanAlert(context.Background(), &models.Alert{
		Techniques: map[string]struct{}{"T1041": {}},
	})
	if err != nil {
		t.Fatalf("PlanAlert: %v", err)
	}
	if assignment.Workflow == nil || assignment.Workflow.Signature.ID != "wf-cheap" {
		t.Fatalf("expected wf-cheap, got %+v", assignment.Workflow)
	}
}

func TestPlanAlertInfeasibleWhenNoApplicableWorkflow(t *testing.T) {
	wc := workflowcatalog.New()
	conds := condition.NewEngine(nil)
	p := New(wc, conds, 10, 1*time.Second)
	assignment, err := p.PlanAlert(context.Background(), &models.Alert{
		Techniques: map[string]struct{}{"T1041": {}},
	})
	if err == nil {
		t.Fatalf("expected PlannerInfeasible")
	}
	if _, ok := err.(*models.PlannerInfeasible); !ok {
		t.Fatalf("expected PlannerInfeasible, got %T", err)
	}
	if assignment.Workflow != nil {
		t.Fatalf("expected nil workflow on infeasible plan")
	}
}

func TestPlanAlertRespectsConditions(t *testing.T) {
	wc := workflowcatalog.New()
	conds := condition.NewEngine(nil)
	if err := conds.Load(&models.Condition{
		ID:    "requires-root",
		Args:  map[string]models.ArgSpec{"user": {Names: []string{"user"}}},
		Check: `parameters["user"] == "root"`,
	}); err != nil {
		t.Fatalf("load condition: %v", err)
	}
	if err := wc.Put(&models.WorkflowSignature{
		ID: "wf-root-only", URL: "http://example/wf", Target: "T1041", Cost: 1,
		Conditions: []string{"requires-root"},
	}); err != nil {
		t.Fatalf("put signature: %v", err)
	}

	p := New(wc, conds, 10, 1*time.Second)
	assignment, err := p.PlanAlert(context.Background(), &models.Alert{
		Techniques: map[string]struct{}{"T1041": {}},
		Data:       map[string]models.Scalar{"user": "guest"},
	})
	if err == nil {
		t.Fatalf("expected infeasible when condition not met")
	}
	if assignment.Workflow != nil {
		t.Fatalf("expected no workflow assigned")
	}
}
