// Package constraint holds the in-memory registry of binding constraints
// published by safety agents during the initial phase. Constraints are
// additive and immutable: nothing is retracted, downgraded, or reordered once
// published.
package constraint

import (
	"errors"
	"fmt"
	"sync"

	"github.com/irops-ai/tower/pkg/models"
)

// ErrNotSafetyAgent rejects publications from outside the safety subset.
var ErrNotSafetyAgent = errors.New("agent is not in the safety subset")

// Registry collects constraints during phase 1 and serves reads to phase 2
// and the arbitrator. Safe for concurrent publication from distinct agents;
// per-agent publication order is preserved.
type Registry struct {
	isSafety func(string) bool

	mu          sync.RWMutex
	constraints []models.BindingConstraint
	seen        map[string]struct{}
}

// NewRegistry creates an empty registry. isSafety gates publication.
func NewRegistry(isSafety func(string) bool) *Registry {
	return &Registry{
		isSafety: isSafety,
		seen:     make(map[string]struct{}),
	}
}

// Publish appends the agent's constraints, parsing severity tokens from the
// raw strings. Republishing identical input from the same agent is a no-op;
// publication by a non-safety agent is rejected.
func (r *Registry) Publish(agentID string, raw []string) error {
	if !r.isSafety(agentID) {
		return fmt.Errorf("%w: %s", ErrNotSafetyAgent, agentID)
	}
	if len(raw) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, text := range raw {
		c := models.ParseConstraint(agentID, text)
		key := agentID + "\x00" + c.String()
		if _, dup := r.seen[key]; dup {
			continue
		}
		r.seen[key] = struct{}{}
		r.constraints = append(r.constraints, c)
	}
	return nil
}

// Query returns the constraints at or above the given severity, in
// publication order.
func (r *Registry) Query(min models.Severity) []models.BindingConstraint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.BindingConstraint
	for _, c := range r.constraints {
		if c.Severity.AtLeast(min) {
			out = append(out, c)
		}
	}
	return out
}

// All returns every published constraint in publication order.
func (r *Registry) All() []models.BindingConstraint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.BindingConstraint, len(r.constraints))
	copy(out, r.constraints)
	return out
}

// AnyBlocking reports whether at least one blocking constraint is published.
func (r *Registry) AnyBlocking() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.constraints {
		if c.Severity == models.SeverityBlocking {
			return true
		}
	}
	return false
}

// Blocking returns only the blocking constraints, in publication order.
func (r *Registry) Blocking() []models.BindingConstraint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.BindingConstraint
	for _, c := range r.constraints {
		if c.Severity == models.SeverityBlocking {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of published constraints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.constraints)
}
