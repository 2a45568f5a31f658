package condition

import (
	"context"
	"fmt"
	"sync"

	"mitigationengine/internal/logger"
	"mitigationengine/pkg/models"
)

// compiled pairs a stored condition with its parsed, load-time-validated
// expression.
type compiled struct {
	cond *models.Condition
	ast  Node
}

// Engine is the condition evaluator (C2): a registry of compiled
// conditions, evaluated against alerts on demand. It owns no mutable alert
// state; all mutation happens through Load/Remove.
type Engine struct {
	mu   sync.RWMutex
	byID map[string]*compiled
	db   GraphDB
}

// NewEngine constructs a condition evaluator. db may be nil; conditions
// that invoke the graphdb() escape will then fail (and therefore evaluate
// to false) at evaluation time, per §4.2.
func NewEngine(db GraphDB) *Engine {
	return &Engine{byID: map[string]*compiled{}, db: db}
}

// Load compiles and registers a condition, replacing any prior condition of
// the same ID. Syntax errors reject the condition without registering it.
func (e *Engine) Load(cond *models.Condition) error {
	ast, err := CompileCheck(cond.ID, cond.Check)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byID[cond.ID] = &compiled{cond: cond, ast: ast}
	return nil
}

// Remove deletes a condition from the registry.
func (e *Engine) Remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.byID, id)
}

// Get returns the stored condition object for CRUD read endpoints.
func (e *Engine) Get(id string) (*models.Condition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.byID[id]
	if !ok {
		return nil, false
	}
	return c.cond, true
}

// Met reports whether the named condition is met for the given alert,
// following §4.2: arguments must resolve, and the compiled expression must
// evaluate true. A missing condition ID is a load-time invariant violation
// (the caller should not have stored a node/workflow referencing it) and is
// treated as unmet.
func (e *Engine) Met(ctx context.Context, id string, alert *models.Alert) (bool, error) {
	e.mu.RLock()
	c, ok := e.byID[id]
	e.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("condition %s not found", id)
	}

	resolved, ok := ResolveArgs(c.cond.Args, alert)
	if !ok {
		return false, nil
	}
	params := MergeParams(c.cond.Params, resolved)
	return Evaluate(ctx, id, c.ast, params, e.db)
}

// AllMet reports whether every condition in ids is met, short-circuiting on
// the first unmet or erroring condition (errors are logged at debug level
// and treated as false).
func (e *Engine) AllMet(ctx context.Context, ids []string, alert *models.Alert) bool {
	for _, id := range ids {
		met, err := e.Met(ctx, id, alert)
		if err != nil {
			logger.Debugf("condition %s treated as unmet: %v", id, err)
			return false
		}
		if !met {
			return false
		}
	}
	return true
}
