package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mitigationengine/pkg/models"
)

func TestDispatchSuccessOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := New(2 * time.Second)
	err := d.Dispatch(context.Background(), &models.WorkflowInstance{
		Signature:      &models.WorkflowSignature{ID: "wf1", URL: srv.URL},
		ResolvedParams: map[string]interface{}{"x": 1.0},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestDispatchFailureOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(2 * time.Second)
	err := d.Dispatch(context.Background(), &models.WorkflowInstance{
		Signature: &models.WorkflowSignature{ID: "wf1", URL: srv.URL},
	})
	if err == nil {
		t.Fatalf("expected DispatchFailure")
	}
	if _, ok := err.(*models.DispatchFailure); !ok {
		t.Fatalf("expected *models.DispatchFailure, got %T", err)
	}
}

func TestDispatchAllConcurrent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(2 * time.Second)
	assignments := []*models.MitigationAssignment{
		{Workflow: &models.WorkflowInstance{Signature: &models.WorkflowSignature{ID: "a", URL: srv.URL}}},
		{Workflow: &models.WorkflowInstance{Signature: &models.WorkflowSignature{ID: "b", URL: srv.URL}}},
		{Workflow: nil},
	}
	outcomes := d.DispatchAll(context.Background(), assignments)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("unexpected dispatch error: %v", o.Err)
		}
	}
}
