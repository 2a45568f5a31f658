package attackinstance

import (
	"context"
	"testing"

	"mitigationengine/internal/condition"
	"mitigationengine/internal/graphcatalog"
	"mitigationengine/pkg/models"
)

func buildRansomwareGraph(t *testing.T) (*graphcatalog.Catalog, *condition.Engine) {
	t.Helper()
	conds := condition.NewEngine(nil)
	must := func(c *models.Condition) {
		if err := conds.Load(c); err != nil {
			t.Fatalf("load condition %s: %v", c.ID, err)
		}
	}
	must(&models.Condition{
		ID:    "file-is-python",
		Args:  map[string]models.ArgSpec{"path": {Names: []string{"file_path"}}},
		Check: `endswith(parameters["path"], ".py")`,
	})
	must(&models.Condition{
		ID:    "file-executable",
		Args:  map[string]models.ArgSpec{"perms": {Names: []string{"file_perms"}}},
		Check: `contains(parameters["perms"], "x")`,
	})
	must(&models.Condition{
		ID:    "file-is-ransomware",
		Args:  map[string]models.ArgSpec{"path": {Names: []string{"file_path"}}},
		Check: `contains(parameters["path"], "zerologon")`,
	})

	graphs := graphcatalog.New()
	g := &models.AttackGraph{
		ID:      "g1",
		Initial: "node101",
		Nodes: map[string]*models.AttackNode{
			"node101": {ID: "node101", Technique: "T1041", Next: []string{"node102"}},
			"node102": {ID: "node102", Technique: "T1222.002", Next: []string{"node103"}, Conditions: []string{"file-is-python", "file-executable"}},
			"node103": {ID: "node103", Technique: "T1204.002", Next: []string{}, Conditions: []string{"file-is-python", "file-is-ransomware"}},
		},
	}
	if err := graphs.Put(g); err != nil {
		t.Fatalf("put graph: %v", err)
	}
	return graphs, conds
}

func alertWith(techniques []string, data map[string]models.Scalar) *models.Alert {
	a := &models.Alert{Data: data, Techniques: map[string]struct{}{}}
	for _, t := range techniques {
		a.Techniques[t] = struct{}{}
	}
	return a
}

func TestScenarioNcatChmodRansomware(t *testing.T) {
	graphs, conds := buildRansomwareGraph(t)
	eng := New(graphs, conds)
	ctx := context.Background()

	a1 := alertWith([]string{"T1041", "T1219"}, nil)
	triggers := eng.Step(ctx, a1)
	if len(triggers) != 1 || triggers[0].Node.ID != "node101" {
		t.Fatalf("step1 triggers = %+v", triggers)
	}
	instances := eng.Instances("g1")
	if len(instances) != 1 || len(instances[0].Front) != 1 || instances[0].Front[0] != "node102" {
		t.Fatalf("unexpected state after step1: %+v", instances)
	}

	a2 := alertWith([]string{"T1222.002"}, map[string]models.Scalar{
		"file_path":  "/tmp/zerologon_tester.py",
		"file_perms": "rwxr-xr-x",
	})
	triggers = eng.Step(ctx, a2)
	if len(triggers) != 1 || triggers[0].Node.ID != "node102" {
		t.Fatalf("step2 triggers = %+v", triggers)
	}
	instances = eng.Instances("g1")
	if len(instances) != 1 || len(instances[0].Ctx) != 2 || instances[0].Front[0] != "node103" {
		t.Fatalf("unexpected state after step2: %+v", instances)
	}

	a3 := alertWith([]string{"T1204.002"}, map[string]models.Scalar{
		"file_path": "/tmp/zerologon_tester.py",
	})
	triggers = eng.Step(ctx, a3)
	if len(triggers) != 1 || triggers[0].Node.ID != "node103" {
		t.Fatalf("step3 triggers = %+v", triggers)
	}
	if instances := eng.Instances("g1"); len(instances) != 0 {
		t.Fatalf("expected instance terminated (empty front deleted), got %+v", instances)
	}
}

func TestMissingMITREDoesNotCreateInstance(t *testing.T) {
	graphs, conds := buildRansomwareGraph(t)
	eng := New(graphs, conds)
	eng.Step(context.Background(), alertWith([]string{"T9999"}, nil))
	if instances := eng.Instances("g1"); len(instances) != 0 {
		t.Fatalf("expected no instance for unmatched technique, got %+v", instances)
	}
}

func TestConditionBlocksAdvancement(t *testing.T) {
	graphs, conds := buildRansomwareGraph(t)
	eng := New(graphs, conds)
	ctx := context.Background()
	eng.Step(ctx, alertWith([]string{"T1041"}, nil))

	before := eng.Instances("g1")[0]
	beforeCtx, beforeFront := len(before.Ctx), before.Front[0]
	triggers := eng.Step(ctx, alertWith([]string{"T1222.002"}, map[string]models.Scalar{"file_path": "/tmp/note.txt"}))
	if len(triggers) != 0 {
		t.Fatalf("expected no trigger when condition fails, got %+v", triggers)
	}
	after := eng.Instances("g1")[0]
	if len(after.Ctx) != beforeCtx || after.Front[0] != beforeFront {
		t.Fatalf("expected state unchanged, before ctx=%d front=%s, after=%+v", beforeCtx, beforeFront, after)
	}
}
