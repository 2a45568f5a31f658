// Package workflowcatalog is the workflow signature registry (C5): same
// shape and semantics as graphcatalog, over workflow signatures.
package workflowcatalog

import (
	"fmt"
	"sync"

	"mitigationengine/pkg/models"
)

// Catalog holds the population of workflow signatures.
type Catalog struct {
	mu   sync.RWMutex
	byID map[string]*models.WorkflowSignature
}

// New constructs an empty catalog.
func New() *Catalog {
	return &Catalog{byID: map[string]*models.WorkflowSignature{}}
}

// Put validates and stores (or replaces) a signature atomically.
func (c *Catalog) Put(s *models.WorkflowSignature) error {
	if s.ID == "" {
		return &models.CatalogInvariantError{Entity: "workflow", ID: "", Reason: "missing id"}
	}
	if s.URL == "" {
		return &models.CatalogInvariantError{Entity: "workflow", ID: s.ID, Reason: "missing url"}
	}
	if s.Cost < 0 {
		return &models.CatalogInvariantError{Entity: "workflow", ID: s.ID, Reason: fmt.Sprintf("negative cost %v", s.Cost)}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[s.ID] = s
	return nil
}

// Remove deletes a signature.
func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// Get returns a single signature by ID.
func (c *Catalog) Get(id string) (*models.WorkflowSignature, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

// Snapshot returns a stable, ID-ordered view for a single planning pass.
func (c *Catalog) Snapshot() []*models.WorkflowSignature {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.WorkflowSignature, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, s)
	}
	sortSignaturesByID(out)
	return out
}

func sortSignaturesByID(ss []*models.WorkflowSignature) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1].ID > ss[j].ID; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

// Applicable returns, in ID order, the signatures applicable to alert a
// (§4.5: target technique present in the alert's technique set).
func (c *Catalog) Applicable(a *models.Alert) []*models.WorkflowSignature {
	all := c.Snapshot()
	out := make([]*models.WorkflowSignature, 0, len(all))
	for _, s := range all {
		if s.AppliesTo(a) {
			out = append(out, s)
		}
	}
	return out
}
