package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentRegistry(t *testing.T) {
	registry := NewAgentRegistry(map[string]*AgentSpec{
		"maintenance": {Safety: true, SystemPrompt: "p", Queries: []string{"get_flight"}},
		"network_ops": {SystemPrompt: "p", Queries: []string{"get_flight"}},
		"regulatory":  {Safety: true, SystemPrompt: "p", Queries: []string{"get_flight"}},
	})

	t.Run("get existing agent", func(t *testing.T) {
		spec, err := registry.Get("maintenance")
		require.NoError(t, err)
		assert.True(t, spec.Safety)
	})

	t.Run("get unknown agent returns typed error", func(t *testing.T) {
		_, err := registry.Get("nonexistent")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAgentNotFound)
	})

	t.Run("ids are canonical order", func(t *testing.T) {
		assert.Equal(t, []string{"maintenance", "network_ops", "regulatory"}, registry.IDs())
	})

	t.Run("safety subset", func(t *testing.T) {
		assert.True(t, registry.IsSafety("maintenance"))
		assert.False(t, registry.IsSafety("network_ops"))
		assert.False(t, registry.IsSafety("nonexistent"))
		assert.Equal(t, []string{"maintenance", "regulatory"}, registry.SafetyIDs())
	})

	t.Run("len", func(t *testing.T) {
		assert.Equal(t, 3, registry.Len())
	})
}

func TestQueryRegistry(t *testing.T) {
	registry := NewQueryRegistry(map[string]*QueryDef{
		"get_flight":               {Kind: QueryKindGet, Table: "flights"},
		"query_bookings_by_flight": {Kind: QueryKindQuery, Index: "bookings_by_flight"},
	})

	t.Run("get existing query", func(t *testing.T) {
		q, err := registry.Get("get_flight")
		require.NoError(t, err)
		assert.Equal(t, QueryKindGet, q.Kind)
	})

	t.Run("get unknown query returns typed error", func(t *testing.T) {
		_, err := registry.Get("drop_tables")
		assert.ErrorIs(t, err, ErrQueryNotFound)
	})

	t.Run("names are canonical order", func(t *testing.T) {
		assert.Equal(t, []string{"get_flight", "query_bookings_by_flight"}, registry.Names())
	})
}

func TestStoreRegistry(t *testing.T) {
	registry := NewStoreRegistry(
		map[string]*TableDef{
			"flights": {PartitionKey: "flight_number", SortKey: "date"},
		},
		map[string]*IndexDef{
			"flights_by_route": {Table: "flights", IndexName: "route-index", PartitionKey: "route"},
		},
	)

	t.Run("table lookup", func(t *testing.T) {
		tbl, err := registry.Table("flights")
		require.NoError(t, err)
		assert.Equal(t, "flight_number", tbl.PartitionKey)

		_, err = registry.Table("passengers")
		assert.ErrorIs(t, err, ErrTableNotFound)
	})

	t.Run("index lookup is symbolic", func(t *testing.T) {
		idx, err := registry.Index("flights_by_route")
		require.NoError(t, err)
		assert.Equal(t, "route-index", idx.IndexName)

		_, err = registry.Index("route-index")
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})
}

func TestBuiltinCatalogue(t *testing.T) {
	builtin := GetBuiltinConfig()

	t.Run("safety subset is exactly the three safety agents", func(t *testing.T) {
		safety := []string{}
		for id, spec := range builtin.Agents {
			if spec.Safety {
				safety = append(safety, id)
			}
		}
		assert.ElementsMatch(t,
			[]string{"maintenance", "regulatory", "crew_compliance"}, safety)
	})

	t.Run("every agent query is catalogued", func(t *testing.T) {
		for id, spec := range builtin.Agents {
			for _, q := range spec.Queries {
				assert.Contains(t, builtin.Queries, q, "agent %s references %s", id, q)
			}
		}
	})

	t.Run("query kinds reference the right store objects", func(t *testing.T) {
		for name, q := range builtin.Queries {
			switch q.Kind {
			case QueryKindQuery:
				assert.Contains(t, builtin.Indexes, q.Index, "query %s", name)
			default:
				assert.Contains(t, builtin.Tables, q.Table, "query %s", name)
			}
		}
	})

	t.Run("model chain has bedrock primary and anthropic fallback", func(t *testing.T) {
		require.Len(t, builtin.Models.Models, 2)
		assert.Equal(t, ProviderBedrock, builtin.Models.Models[0].Provider)
		assert.Equal(t, ProviderAnthropic, builtin.Models.Models[1].Provider)
	})
}
