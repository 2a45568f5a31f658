package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"mitigationengine/internal/alert"
	"mitigationengine/internal/attackinstance"
	"mitigationengine/internal/condition"
	"mitigationengine/internal/dispatcher"
	"mitigationengine/internal/graphcatalog"
	"mitigationengine/internal/planner"
	"mitigationengine/internal/workflowcatalog"
	"mitigationengine/pkg/models"
)

type fakeSource struct {
	mu    sync.Mutex
	items []*models.RawAlert
}

func (f *fakeSource) Next(ctx context.Context) (*models.RawAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	raw := f.items[0]
	f.items = f.items[1:]
	return raw, nil
}

func TestRunDrainsAlertsUntilCancelled(t *testing.T) {
	raw := &models.RawAlert{Document: map[string]any{"description": "test alert"}}
	src := &fakeSource{items: []*models.RawAlert{raw}}

	conditions := condition.NewEngine(nil)
	engine := attackinstance.New(graphcatalog.New(), conditions)
	plan := planner.New(workflowcatalog.New(), conditions, 10, time.Second)
	dispatch := dispatcher.New(time.Second)

	w := New(src, alert.DefaultSchema(), engine, plan, dispatch)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestHandleDropsMalformedAlertWithoutPanicking(t *testing.T) {
	conditions := condition.NewEngine(nil)
	engine := attackinstance.New(graphcatalog.New(), conditions)
	plan := planner.New(workflowcatalog.New(), conditions, 10, time.Second)
	dispatch := dispatcher.New(time.Second)
	w := New(&fakeSource{}, alert.DefaultSchema(), engine, plan, dispatch)

	raw := &models.RawAlert{Document: map[string]any{"mitre_ids": 42}}
	w.handle(context.Background(), raw)
}
