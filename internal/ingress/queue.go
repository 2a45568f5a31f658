// Package ingress provides the shared inbound alert queue that both the
// message-bus subscriber and the HTTP POST /alert endpoint feed, and that
// the single alert worker drains.
package ingress

import (
	"context"
	"fmt"

	"mitigationengine/pkg/models"
)

// Queue is a bounded, buffered hand-off between the ingress boundaries and
// the alert worker.
type Queue struct {
	ch chan *models.RawAlert
}

// NewQueue constructs a queue with the given buffer size.
func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 256
	}
	return &Queue{ch: make(chan *models.RawAlert, buffer)}
}

// Enqueue implements httpapi.AlertQueue: it accepts a raw alert without
// blocking, failing if the queue is full.
func (q *Queue) Enqueue(raw *models.RawAlert) error {
	select {
	case q.ch <- raw:
		return nil
	default:
		return fmt.Errorf("alert queue full")
	}
}

// Next implements worker.AlertSource.
func (q *Queue) Next(ctx context.Context) (*models.RawAlert, error) {
	select {
	case raw := <-q.ch:
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
