package models

import (
	"sort"
	"time"
)

// Collation is the immutable record of all AgentResponses for one phase.
// It is the only object passed forward between phases.
type Collation struct {
	Phase     Phase                    `json:"phase"`
	Responses map[string]AgentResponse `json:"responses"`
	Timestamp time.Time                `json:"timestamp"`
	Duration  time.Duration            `json:"duration"`
}

// Successful returns the responses with status=success, keyed by agent ID.
func (c *Collation) Successful() map[string]AgentResponse {
	out := make(map[string]AgentResponse)
	for id, r := range c.Responses {
		if r.Status == StatusSuccess {
			out[id] = r
		}
	}
	return out
}

// Failed returns the responses with status timeout or error, keyed by agent ID.
func (c *Collation) Failed() map[string]AgentResponse {
	out := make(map[string]AgentResponse)
	for id, r := range c.Responses {
		if r.Status != StatusSuccess {
			out[id] = r
		}
	}
	return out
}

// StatusCounts returns the number of responses per terminal status.
func (c *Collation) StatusCounts() map[ResponseStatus]int {
	counts := make(map[ResponseStatus]int)
	for _, r := range c.Responses {
		counts[r.Status]++
	}
	return counts
}

// AgentIDs returns the collation's agent IDs in canonical (lexicographic)
// order. Any iteration that must be deterministic uses this ordering.
func (c *Collation) AgentIDs() []string {
	ids := make([]string, 0, len(c.Responses))
	for id := range c.Responses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
