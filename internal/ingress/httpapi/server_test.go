package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mitigationengine/internal/condition"
	"mitigationengine/internal/graphcatalog"
	"mitigationengine/internal/workflowcatalog"
	"mitigationengine/pkg/models"
)

type fakeQueue struct {
	full     bool
	received *models.RawAlert
}

func (f *fakeQueue) Enqueue(raw *models.RawAlert) error {
	if f.full {
		return errMissingGraphOrNode
	}
	f.received = raw
	return nil
}

func newTestServer() (*Server, *fakeQueue, *graphcatalog.Catalog, *workflowcatalog.Catalog) {
	q := &fakeQueue{}
	graphs := graphcatalog.New()
	workflows := workflowcatalog.New()
	conditions := condition.NewEngine(nil)
	return New(q, conditions, graphs, workflows), q, graphs, workflows
}

func TestHandleAlertPostEnqueuesAndReturns202(t *testing.T) {
	s, q, _, _ := newTestServer()
	body, _ := json.Marshal(map[string]any{"description": "ncat downloaded"})
	req := httptest.NewRequest(http.MethodPost, "/alert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if q.received == nil {
		t.Fatal("expected the alert to be enqueued")
	}
}

func TestHandleAlertPostRejectsNonJSON(t *testing.T) {
	s, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/alert", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406, got %d", rec.Code)
	}
}

func TestHandleNodePostRequiresGraphID(t *testing.T) {
	s, _, graphs, _ := newTestServer()
	_ = graphs.Put(&models.AttackGraph{
		ID:      "g1",
		Initial: "n0",
		Nodes:   map[string]*models.AttackNode{"n0": {ID: "n0"}},
	})

	body, _ := json.Marshal(map[string]any{"node": map[string]any{"id": "n1"}})
	req := httptest.NewRequest(http.MethodPost, "/node", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing graph_id, got %d", rec.Code)
	}
}

func TestHandleNodePostAddsNodeToExistingGraph(t *testing.T) {
	s, _, graphs, _ := newTestServer()
	_ = graphs.Put(&models.AttackGraph{
		ID:      "g1",
		Initial: "n0",
		Nodes:   map[string]*models.AttackNode{"n0": {ID: "n0"}},
	})

	env := map[string]any{"graph_id": "g1", "node": map[string]any{"id": "n1", "technique": "T1105"}}
	body, _ := json.Marshal(env)
	req := httptest.NewRequest(http.MethodPost, "/node", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	g, ok := graphs.Get("g1")
	if !ok {
		t.Fatal("expected graph g1 to still exist")
	}
	if _, ok := g.Nodes["n1"]; !ok {
		t.Fatal("expected node n1 to have been added")
	}
}

func TestHandleVersionReturnsVersion(t *testing.T) {
	s, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var v Version
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if v.Major != versionMajor || v.Minor != versionMinor {
		t.Fatalf("unexpected version: %+v", v)
	}
}
