package config

import (
	"fmt"
	"sort"
	"sync"
)

// AgentRegistry stores agent specs in memory with thread-safe access.
type AgentRegistry struct {
	agents map[string]*AgentSpec
	mu     sync.RWMutex
}

// NewAgentRegistry creates a new agent registry.
func NewAgentRegistry(agents map[string]*AgentSpec) *AgentRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*AgentSpec, len(agents))
	for k, v := range agents {
		copied[k] = v
	}
	return &AgentRegistry{agents: copied}
}

// Get retrieves an agent spec by ID.
func (r *AgentRegistry) Get(id string) (*AgentSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, exists := r.agents[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return spec, nil
}

// Has checks if an agent exists in the registry.
func (r *AgentRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.agents[id]
	return exists
}

// IDs returns all agent IDs in canonical (lexicographic) order.
func (r *AgentRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsSafety reports whether the agent belongs to the safety subset.
// Unknown agents are not safety agents.
func (r *AgentRegistry) IsSafety(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, exists := r.agents[id]
	return exists && spec.Safety
}

// SafetyIDs returns the IDs of the safety subset in canonical order.
func (r *AgentRegistry) SafetyIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id, spec := range r.agents {
		if spec.Safety {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// GetAll returns all agent specs (returns a copy).
func (r *AgentRegistry) GetAll() map[string]*AgentSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*AgentSpec, len(r.agents))
	for k, v := range r.agents {
		result[k] = v
	}
	return result
}

// Len returns the number of registered agents.
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
