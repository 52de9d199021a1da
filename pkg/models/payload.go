// Package models defines the shared value records exchanged between the
// orchestrator, phase executor, agents, and arbitrator. Records are immutable
// once emitted into a Collation.
package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Phase identifies which orchestration round an agent runs in.
type Phase string

const (
	// PhaseInitial is the first fan-out: agents see only the user prompt.
	PhaseInitial Phase = "initial"
	// PhaseRevision is the second fan-out: agents re-evaluate given peer
	// recommendations and published safety constraints.
	PhaseRevision Phase = "revision"
)

// IsValid checks if the phase is a known value.
func (p Phase) IsValid() bool {
	return p == PhaseInitial || p == PhaseRevision
}

// validate is the shared validator instance for struct tags.
// Stateless and safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// DisruptionPayload is the per-agent invocation input, built by the
// orchestrator for each agent run.
type DisruptionPayload struct {
	UserPrompt string `json:"user_prompt" validate:"required"`
	Phase      Phase  `json:"phase" validate:"required,oneof=initial revision"`

	// PeerRecommendations carries the phase-1 responses keyed by agent ID.
	// Required when Phase is revision, forbidden when Phase is initial.
	PeerRecommendations map[string]AgentResponse `json:"peer_recommendations,omitempty"`
}

// Validate enforces field-level and cross-field payload rules.
func (p *DisruptionPayload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	switch p.Phase {
	case PhaseInitial:
		if len(p.PeerRecommendations) > 0 {
			return fmt.Errorf("%w: peer_recommendations forbidden in initial phase", ErrInvalidPayload)
		}
	case PhaseRevision:
		if len(p.PeerRecommendations) == 0 {
			return fmt.Errorf("%w: peer_recommendations required in revision phase", ErrInvalidPayload)
		}
	}
	return nil
}
