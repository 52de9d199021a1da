// Package config provides configuration management for the tower
// orchestrator: the agent prompt catalogue, the data query catalogue with its
// table and index definitions, the LLM model fallback chain, and system-wide
// defaults.
package config

// AgentSpec declares one decision agent: an opaque system prompt, the set of
// data queries it is authorized to invoke, and whether it belongs to the
// safety subset (and may therefore publish binding constraints).
type AgentSpec struct {
	// Human-readable description (used in logs and the health endpoint).
	Description string `yaml:"description,omitempty"`

	// Safety marks the agent as part of the safety subset.
	Safety bool `yaml:"safety,omitempty"`

	// SystemPrompt is owned by the prompt catalogue and treated as an
	// opaque string by the runtime.
	SystemPrompt string `yaml:"system_prompt"`

	// Queries lists the data fetcher operations this agent may invoke.
	// Names reference the query catalogue; anything else is rejected.
	Queries []string `yaml:"queries"`

	// MaxIterations overrides the default tool-call loop bound.
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
}

// QueryKind selects the data fetcher primitive a query maps to.
type QueryKind string

const (
	// QueryKindGet is a point-get by primary key.
	QueryKindGet QueryKind = "get"
	// QueryKindQuery is an indexed range-query against a named secondary index.
	QueryKindQuery QueryKind = "query"
	// QueryKindScan is a filter-scan; usable only where no index applies.
	QueryKindScan QueryKind = "scan"
)

// IsValid checks if the query kind is a known value.
func (k QueryKind) IsValid() bool {
	return k == QueryKindGet || k == QueryKindQuery || k == QueryKindScan
}

// QueryDef declares one operation of the data fetcher catalogue. The
// ParamsSchema doubles as the tool manifest entry handed to the LLM.
type QueryDef struct {
	Kind        QueryKind `yaml:"kind"`
	Table       string    `yaml:"table,omitempty"` // get and scan kinds
	Index       string    `yaml:"index,omitempty"` // query kind
	Description string    `yaml:"description"`

	// ParamsSchema is a JSON Schema describing the query arguments.
	ParamsSchema string `yaml:"params_schema"`
}

// TableDef declares the primary key attributes of a store table.
type TableDef struct {
	PartitionKey string `yaml:"partition_key"`
	SortKey      string `yaml:"sort_key,omitempty"`
}

// IndexDef declares a named secondary index. Index names are symbolic and
// fixed in configuration, never discovered at runtime.
type IndexDef struct {
	Table        string `yaml:"table"`
	IndexName    string `yaml:"index_name"`
	PartitionKey string `yaml:"partition_key"`
	SortKey      string `yaml:"sort_key,omitempty"`
}

// ScoringWeights is the fixed weighted sum used by the arbitrator to score
// composed scenarios. All weights apply to metrics normalized to [0,1].
type ScoringWeights struct {
	PassengerSatisfaction float64 `yaml:"passenger_satisfaction" json:"passenger_satisfaction"`
	CostEfficiency        float64 `yaml:"cost_efficiency" json:"cost_efficiency"`
	DelayReduction        float64 `yaml:"delay_reduction" json:"delay_reduction"`
	ExecutionReliability  float64 `yaml:"execution_reliability" json:"execution_reliability"`
}

// AsMap returns the weights keyed by metric name, matching the keys the
// outcome-prediction step produces.
func (w ScoringWeights) AsMap() map[string]float64 {
	return map[string]float64{
		"passenger_satisfaction": w.PassengerSatisfaction,
		"cost_efficiency":        w.CostEfficiency,
		"delay_reduction":        w.DelayReduction,
		"execution_reliability":  w.ExecutionReliability,
	}
}
