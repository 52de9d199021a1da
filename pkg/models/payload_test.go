package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisruptionPayloadValidate(t *testing.T) {
	peer := map[string]AgentResponse{
		"maintenance": {AgentName: "maintenance", Recommendation: "swap", Confidence: 0.8, Status: StatusSuccess},
	}

	t.Run("valid initial payload", func(t *testing.T) {
		p := DisruptionPayload{UserPrompt: "Flight EY123 today had a mechanical failure", Phase: PhaseInitial}
		assert.NoError(t, p.Validate())
	})

	t.Run("valid revision payload", func(t *testing.T) {
		p := DisruptionPayload{UserPrompt: "prompt", Phase: PhaseRevision, PeerRecommendations: peer}
		assert.NoError(t, p.Validate())
	})

	t.Run("empty prompt rejected", func(t *testing.T) {
		p := DisruptionPayload{Phase: PhaseInitial}
		assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
	})

	t.Run("unknown phase rejected", func(t *testing.T) {
		p := DisruptionPayload{UserPrompt: "prompt", Phase: Phase("final")}
		assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
	})

	t.Run("peers forbidden in initial phase", func(t *testing.T) {
		p := DisruptionPayload{UserPrompt: "prompt", Phase: PhaseInitial, PeerRecommendations: peer}
		assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
	})

	t.Run("peers required in revision phase", func(t *testing.T) {
		p := DisruptionPayload{UserPrompt: "prompt", Phase: PhaseRevision}
		assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
	})
}

func TestAgentResponseValidate(t *testing.T) {
	safety := func(name string) bool { return name == "maintenance" }

	t.Run("valid success response", func(t *testing.T) {
		r := AgentResponse{AgentName: "network_ops", Recommendation: "re-route", Confidence: 0.7, Status: StatusSuccess}
		assert.NoError(t, r.Validate(safety))
	})

	t.Run("confidence bounds enforced", func(t *testing.T) {
		r := AgentResponse{AgentName: "network_ops", Recommendation: "re-route", Confidence: 1.2, Status: StatusSuccess}
		require.Error(t, r.Validate(safety))

		r.Confidence = -0.1
		assert.Error(t, r.Validate(safety))
	})

	t.Run("constraints restricted to safety subset", func(t *testing.T) {
		r := AgentResponse{
			AgentName:          "network_ops",
			Recommendation:     "re-route",
			Confidence:         0.7,
			BindingConstraints: []string{"HIGH: no"},
			Status:             StatusSuccess,
		}
		assert.ErrorIs(t, r.Validate(safety), ErrInvalidResponse)

		r.AgentName = "maintenance"
		assert.NoError(t, r.Validate(safety))
	})

	t.Run("error status requires error message", func(t *testing.T) {
		r := AgentResponse{AgentName: "maintenance", Confidence: 0, Status: StatusError}
		require.Error(t, r.Validate(safety))

		r.Error = "store unreachable"
		assert.NoError(t, r.Validate(safety))
	})

	t.Run("success requires recommendation", func(t *testing.T) {
		r := AgentResponse{AgentName: "maintenance", Confidence: 0.5, Status: StatusSuccess}
		assert.ErrorIs(t, r.Validate(safety), ErrInvalidResponse)
	})
}
