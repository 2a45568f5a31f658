package graphcatalog

import (
	"testing"

	"mitigationengine/pkg/models"
)

func validGraph(id string) *models.AttackGraph {
	return &models.AttackGraph{
		ID:      id,
		Initial: "n0",
		Nodes: map[string]*models.AttackNode{
			"n0": {ID: "n0", Technique: "T1059", Next: []string{"n1"}},
			"n1": {ID: "n1", Technique: "T1105"},
		},
	}
}

func TestPutRejectsUnknownInitial(t *testing.T) {
	c := New()
	g := &models.AttackGraph{ID: "bad", Initial: "missing", Nodes: map[string]*models.AttackNode{}}
	if err := c.Put(g); err == nil {
		t.Fatal("expected error for unknown initial node")
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("rejected graph must not be stored")
	}
}

func TestPutRejectsUnknownSuccessor(t *testing.T) {
	c := New()
	g := &models.AttackGraph{
		ID:      "bad",
		Initial: "n0",
		Nodes: map[string]*models.AttackNode{
			"n0": {ID: "n0", Next: []string{"ghost"}},
		},
	}
	if err := c.Put(g); err == nil {
		t.Fatal("expected error for unknown successor")
	}
}

func TestPutGetRemoveRoundTrip(t *testing.T) {
	c := New()
	g := validGraph("g1")
	if err := c.Put(g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := c.Get("g1")
	if !ok || got.ID != "g1" {
		t.Fatalf("expected to find g1, got %v ok=%v", got, ok)
	}
	c.Remove("g1")
	if _, ok := c.Get("g1"); ok {
		t.Fatal("expected g1 to be removed")
	}
}

func TestSnapshotIsIDOrdered(t *testing.T) {
	c := New()
	_ = c.Put(validGraph("zeta"))
	_ = c.Put(validGraph("alpha"))
	_ = c.Put(validGraph("mu"))

	snap := c.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 graphs, got %d", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].ID > snap[i].ID {
			t.Fatalf("snapshot not ID-ordered: %v", snap)
		}
	}
}
