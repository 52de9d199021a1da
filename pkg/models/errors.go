package models

import "errors"

var (
	// ErrInvalidPayload indicates a DisruptionPayload failed validation.
	ErrInvalidPayload = errors.New("invalid disruption payload")

	// ErrInvalidFlightInfo indicates extracted flight info failed
	// normalization or validation.
	ErrInvalidFlightInfo = errors.New("invalid flight info")

	// ErrInvalidResponse indicates an AgentResponse violates an invariant.
	ErrInvalidResponse = errors.New("invalid agent response")

	// ErrUnknownSeverity indicates a constraint severity outside the
	// declared set.
	ErrUnknownSeverity = errors.New("unknown constraint severity")
)
