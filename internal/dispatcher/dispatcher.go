// Package dispatcher implements the mitigation dispatcher (C7): it
// materializes each chosen workflow instance's resolved parameters and
// POSTs them as JSON to the workflow's webhook.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"mitigationengine/internal/logger"
	"mitigationengine/internal/metrics"
	"mitigationengine/pkg/models"
)

// Dispatcher issues fire-and-forget webhook POSTs. It never retries:
// webhooks are not assumed idempotent (§4.7).
type Dispatcher struct {
	client *http.Client
}

// New constructs a dispatcher with the given per-request timeout (default
// 30s per §4.7/§6).
func New(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{client: &http.Client{Timeout: timeout}}
}

// Dispatch POSTs a single workflow instance's resolved parameters to its
// signature's URL. A non-2xx status, connection error, or timeout is
// returned as *models.DispatchFailure.
func (d *Dispatcher) Dispatch(ctx context.Context, w *models.WorkflowInstance) error {
	start := time.Now()
	err := d.doDispatch(ctx, w)
	metrics.DispatchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DispatchOutcomes.WithLabelValues("failure").Inc()
		return err
	}
	metrics.DispatchOutcomes.WithLabelValues("success").Inc()
	return nil
}

func (d *Dispatcher) doDispatch(ctx context.Context, w *models.WorkflowInstance) error {
	body, err := json.Marshal(w.ResolvedParams)
	if err != nil {
		return &models.DispatchFailure{WorkflowID: w.Signature.ID, URL: w.Signature.URL, Cause: fmt.Errorf("marshal params: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Signature.URL, bytes.NewReader(body))
	if err != nil {
		return &models.DispatchFailure{WorkflowID: w.Signature.ID, URL: w.Signature.URL, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &models.DispatchFailure{WorkflowID: w.Signature.ID, URL: w.Signature.URL, Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.DispatchFailure{WorkflowID: w.Signature.ID, URL: w.Signature.URL, Cause: fmt.Errorf("status %s", resp.Status)}
	}
	return nil
}

// Outcome is the per-workflow dispatch result returned as part of a
// mitigation outcome (§7: DispatchFailure is logged and returned, never
// retried automatically).
type Outcome struct {
	Workflow *models.WorkflowInstance
	Err      error
}

// DispatchAll fires every assignment's non-nil workflow concurrently (§4.7:
// dispatches for different workflows in one plan may proceed concurrently)
// and waits for all of them, logging failures as they occur.
func (d *Dispatcher) DispatchAll(ctx context.Context, assignments []*models.MitigationAssignment) []Outcome {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []Outcome
	)
	for _, a := range assignments {
		if a == nil || a.Workflow == nil {
			continue
		}
		wg.Add(1)
		go func(w *models.WorkflowInstance) {
			defer wg.Done()
			err := d.Dispatch(ctx, w)
			if err != nil {
				logger.Errorf("dispatch failed: %v", err)
			}
			mu.Lock()
			out = append(out, Outcome{Workflow: w, Err: err})
			mu.Unlock()
		}(a.Workflow)
	}
	wg.Wait()
	return out
}
