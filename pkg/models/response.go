package models

import (
	"fmt"
	"time"
)

// ResponseStatus is the terminal status of one agent run.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusTimeout ResponseStatus = "timeout"
	StatusError   ResponseStatus = "error"
)

// IsValid checks if the status is a known value.
func (s ResponseStatus) IsValid() bool {
	return s == StatusSuccess || s == StatusTimeout || s == StatusError
}

// AgentResponse is the standard record every agent run produces, regardless
// of outcome. Exactly one of Recommendation (status=success) or Error
// (otherwise) is meaningful.
type AgentResponse struct {
	AgentName          string         `json:"agent_name"`
	Recommendation     string         `json:"recommendation,omitempty"`
	Confidence         float64        `json:"confidence" validate:"gte=0,lte=1"`
	BindingConstraints []string       `json:"binding_constraints,omitempty"`
	Reasoning          string         `json:"reasoning,omitempty"`
	DataSources        []string       `json:"data_sources,omitempty"`
	ExtractedFlight    *FlightInfo    `json:"extracted_flight_info,omitempty"`
	Status             ResponseStatus `json:"status"`
	Duration           time.Duration  `json:"duration"`
	Error              string         `json:"error,omitempty"`
	Timestamp          time.Time      `json:"timestamp"`
}

// Validate enforces the AgentResponse invariants. isSafetyAgent reports
// whether an agent name belongs to the safety subset; only safety agents may
// carry binding constraints.
func (r *AgentResponse) Validate(isSafetyAgent func(string) bool) error {
	if r.AgentName == "" {
		return fmt.Errorf("%w: agent_name is empty", ErrInvalidResponse)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: status %q", ErrInvalidResponse, r.Status)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(r.BindingConstraints) > 0 && !isSafetyAgent(r.AgentName) {
		return fmt.Errorf("%w: agent %q is not in the safety subset but emitted constraints", ErrInvalidResponse, r.AgentName)
	}
	switch r.Status {
	case StatusSuccess:
		if r.Recommendation == "" {
			return fmt.Errorf("%w: success response without recommendation", ErrInvalidResponse)
		}
	default:
		if r.Error == "" {
			return fmt.Errorf("%w: %s response without error message", ErrInvalidResponse, r.Status)
		}
	}
	return nil
}
