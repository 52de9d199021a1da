package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConstraint(t *testing.T) {
	t.Run("blocking token", func(t *testing.T) {
		c := ParseConstraint("maintenance", "BLOCKING: aircraft not airworthy")
		assert.Equal(t, SeverityBlocking, c.Severity)
		assert.Equal(t, "aircraft not airworthy", c.Text)
		assert.Equal(t, "maintenance", c.SourceAgent)
	})

	t.Run("explicit severity tokens", func(t *testing.T) {
		cases := map[string]Severity{
			"HIGH: crew duty limit at 14h":    SeverityHigh,
			"medium: gate change recommended": SeverityMedium,
			"Low: notify catering":            SeverityLow,
		}
		for raw, want := range cases {
			assert.Equal(t, want, ParseConstraint("regulatory", raw).Severity, raw)
		}
	})

	t.Run("untagged defaults to high", func(t *testing.T) {
		c := ParseConstraint("crew_compliance", "rest period must be honored")
		assert.Equal(t, SeverityHigh, c.Severity)
		assert.Equal(t, "rest period must be honored", c.Text)
	})

	t.Run("unknown token stays in text", func(t *testing.T) {
		c := ParseConstraint("maintenance", "NOTE: inspect hydraulics")
		assert.Equal(t, SeverityHigh, c.Severity)
		assert.Equal(t, "NOTE: inspect hydraulics", c.Text)
	})

	t.Run("round trips through wire form", func(t *testing.T) {
		c := ParseConstraint("maintenance", "BLOCKING: aircraft not airworthy")
		again := ParseConstraint(c.SourceAgent, c.String())
		assert.Equal(t, c, again)
	})
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityBlocking.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
	assert.True(t, SeverityBlocking.IsValid())
	assert.False(t, Severity("urgent").IsValid())
}
