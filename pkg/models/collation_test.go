package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCollation() *Collation {
	return &Collation{
		Phase: PhaseInitial,
		Responses: map[string]AgentResponse{
			"maintenance": {
				AgentName:          "maintenance",
				Recommendation:     "swap aircraft",
				Confidence:         0.9,
				BindingConstraints: []string{"BLOCKING: aircraft not airworthy"},
				Status:             StatusSuccess,
				Duration:           3 * time.Second,
				Timestamp:          testNow,
			},
			"regulatory": {
				AgentName: "regulatory",
				Status:    StatusError,
				Error:     "all models unavailable",
				Duration:  2 * time.Second,
				Timestamp: testNow,
			},
			"network_ops": {
				AgentName: "network_ops",
				Status:    StatusTimeout,
				Error:     "agent deadline exceeded",
				Duration:  60 * time.Second,
				Timestamp: testNow,
			},
		},
		Timestamp: testNow,
		Duration:  61 * time.Second,
	}
}

func TestCollationViews(t *testing.T) {
	c := sampleCollation()

	t.Run("successful view", func(t *testing.T) {
		ok := c.Successful()
		require.Len(t, ok, 1)
		assert.Contains(t, ok, "maintenance")
	})

	t.Run("failed view", func(t *testing.T) {
		failed := c.Failed()
		require.Len(t, failed, 2)
		assert.Contains(t, failed, "regulatory")
		assert.Contains(t, failed, "network_ops")
	})

	t.Run("status counts", func(t *testing.T) {
		counts := c.StatusCounts()
		assert.Equal(t, 1, counts[StatusSuccess])
		assert.Equal(t, 1, counts[StatusError])
		assert.Equal(t, 1, counts[StatusTimeout])
	})

	t.Run("canonical agent ordering", func(t *testing.T) {
		assert.Equal(t, []string{"maintenance", "network_ops", "regulatory"}, c.AgentIDs())
	})
}

func TestCollationJSONRoundTrip(t *testing.T) {
	original := sampleCollation()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Collation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *original, decoded)
}
