package constraint

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irops-ai/tower/pkg/models"
)

func safetySet(ids ...string) func(string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestRegistryPublish(t *testing.T) {
	t.Run("severity tokens are parsed", func(t *testing.T) {
		r := NewRegistry(safetySet("maintenance"))
		require.NoError(t, r.Publish("maintenance", []string{
			"BLOCKING: aircraft not airworthy",
			"MEDIUM: defer cabin defect to next check",
			"keep spare parts reserved",
		}))

		all := r.All()
		require.Len(t, all, 3)
		assert.Equal(t, models.SeverityBlocking, all[0].Severity)
		assert.Equal(t, "aircraft not airworthy", all[0].Text)
		assert.Equal(t, models.SeverityMedium, all[1].Severity)
		assert.Equal(t, models.SeverityHigh, all[2].Severity, "untagged constraints bind as high")
	})

	t.Run("idempotent per agent", func(t *testing.T) {
		r := NewRegistry(safetySet("maintenance", "regulatory"))
		input := []string{"HIGH: no tail swap to A6-EYB"}
		require.NoError(t, r.Publish("maintenance", input))
		require.NoError(t, r.Publish("maintenance", input))
		assert.Equal(t, 1, r.Len())

		// The same text from a different agent is a distinct constraint.
		require.NoError(t, r.Publish("regulatory", input))
		assert.Equal(t, 2, r.Len())
	})

	t.Run("non-safety publication rejected", func(t *testing.T) {
		r := NewRegistry(safetySet("maintenance"))
		err := r.Publish("cost_control", []string{"HIGH: cap hotel spend"})
		assert.ErrorIs(t, err, ErrNotSafetyAgent)
		assert.Equal(t, 0, r.Len())
	})
}

func TestRegistryQuery(t *testing.T) {
	r := NewRegistry(safetySet("maintenance"))
	require.NoError(t, r.Publish("maintenance", []string{
		"BLOCKING: b", "HIGH: h", "MEDIUM: m", "LOW: l",
	}))

	t.Run("threshold filters downward", func(t *testing.T) {
		assert.Len(t, r.Query(models.SeverityLow), 4)
		assert.Len(t, r.Query(models.SeverityMedium), 3)
		assert.Len(t, r.Query(models.SeverityHigh), 2)
		assert.Len(t, r.Query(models.SeverityBlocking), 1)
	})

	t.Run("publication order preserved", func(t *testing.T) {
		got := r.Query(models.SeverityHigh)
		assert.Equal(t, "b", got[0].Text)
		assert.Equal(t, "h", got[1].Text)
	})

	t.Run("blocking views", func(t *testing.T) {
		assert.True(t, r.AnyBlocking())
		blocking := r.Blocking()
		require.Len(t, blocking, 1)
		assert.Equal(t, "b", blocking[0].Text)
	})
}

func TestRegistryConcurrentPublication(t *testing.T) {
	agents := []string{"maintenance", "regulatory", "crew_compliance"}
	r := NewRegistry(safetySet(agents...))

	perAgent := 20
	var wg sync.WaitGroup
	for _, agent := range agents {
		wg.Add(1)
		go func(agent string) {
			defer wg.Done()
			for i := 0; i < perAgent; i++ {
				err := r.Publish(agent, []string{fmt.Sprintf("HIGH: %s constraint %d", agent, i)})
				assert.NoError(t, err)
			}
		}(agent)
	}
	wg.Wait()

	all := r.All()
	assert.Len(t, all, len(agents)*perAgent, "final set is the union of inputs")

	// Per-agent publication order is stable even under interleaving.
	for _, agent := range agents {
		last := -1
		for _, c := range all {
			if c.SourceAgent != agent {
				continue
			}
			var i int
			_, err := fmt.Sscanf(c.Text, agent+" constraint %d", &i)
			require.NoError(t, err)
			assert.Greater(t, i, last)
			last = i
		}
	}
}
