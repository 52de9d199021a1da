package config

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Config is the fully resolved, validated system configuration.
type Config struct {
	Defaults *Defaults
	Agents   *AgentRegistry
	Queries  *QueryRegistry
	Store    *StoreRegistry
	Models   ModelChainConfig
}

// Validate performs cross-reference validation over the assembled
// configuration: every agent query must exist in the catalogue, every query
// must reference a defined table or index, index tables must exist, and the
// model chain must be usable. Returns the first error found.
func (c *Config) Validate() error {
	for _, id := range c.Agents.IDs() {
		spec, _ := c.Agents.Get(id)
		if err := structValidator.Struct(spec); err != nil {
			return NewValidationError("agent", id, "", err)
		}
		if spec.SystemPrompt == "" {
			return NewValidationError("agent", id, "system_prompt",
				fmt.Errorf("must not be empty"))
		}
		if len(spec.Queries) == 0 {
			return NewValidationError("agent", id, "queries",
				fmt.Errorf("agent has no authorized queries"))
		}
		for _, q := range spec.Queries {
			if !c.Queries.Has(q) {
				return NewValidationError("agent", id, "queries",
					fmt.Errorf("%w: %s", ErrQueryNotFound, q))
			}
		}
	}

	for _, name := range c.Queries.Names() {
		q, _ := c.Queries.Get(name)
		if err := c.validateQuery(name, q); err != nil {
			return err
		}
	}

	for _, name := range c.Store.IndexNames() {
		idx, _ := c.Store.Index(name)
		if !c.Store.HasTable(idx.Table) {
			return NewValidationError("index", name, "table",
				fmt.Errorf("%w: %s", ErrTableNotFound, idx.Table))
		}
		if idx.IndexName == "" || idx.PartitionKey == "" {
			return NewValidationError("index", name, "",
				fmt.Errorf("index_name and partition_key are required"))
		}
	}

	if len(c.Models.Models) == 0 {
		return NewValidationError("models", "chain", "", ErrNoModels)
	}
	for i, m := range c.Models.Models {
		if !m.Provider.IsValid() {
			return NewValidationError("models", fmt.Sprintf("models[%d]", i), "provider",
				fmt.Errorf("unknown provider %q", m.Provider))
		}
		if m.ModelID == "" {
			return NewValidationError("models", fmt.Sprintf("models[%d]", i), "model_id",
				fmt.Errorf("must not be empty"))
		}
	}

	if err := c.validateWeights(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQuery(name string, q *QueryDef) error {
	if !q.Kind.IsValid() {
		return NewValidationError("query", name, "kind",
			fmt.Errorf("unknown kind %q", q.Kind))
	}
	switch q.Kind {
	case QueryKindQuery:
		if q.Index == "" {
			return NewValidationError("query", name, "index",
				fmt.Errorf("query kind requires an index"))
		}
		if !c.Store.HasIndex(q.Index) {
			return NewValidationError("query", name, "index",
				fmt.Errorf("%w: %s", ErrIndexNotFound, q.Index))
		}
	default:
		if q.Table == "" {
			return NewValidationError("query", name, "table",
				fmt.Errorf("%s kind requires a table", q.Kind))
		}
		if !c.Store.HasTable(q.Table) {
			return NewValidationError("query", name, "table",
				fmt.Errorf("%w: %s", ErrTableNotFound, q.Table))
		}
	}
	if q.ParamsSchema == "" {
		return NewValidationError("query", name, "params_schema",
			fmt.Errorf("must not be empty"))
	}
	return nil
}

func (c *Config) validateWeights() error {
	w := c.Defaults.Weights
	sum := 0.0
	for metric, weight := range w.AsMap() {
		if weight < 0 {
			return NewValidationError("defaults", "scoring_weights", metric,
				fmt.Errorf("must not be negative, got %v", weight))
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > 0.001 {
		return NewValidationError("defaults", "scoring_weights", "",
			fmt.Errorf("weights must sum to 1.0, got %v", sum))
	}
	return nil
}

// Stats summarizes configuration counts for the health endpoint.
type Stats struct {
	Agents       int      `json:"agents"`
	SafetyAgents []string `json:"safety_agents"`
	Queries      int      `json:"queries"`
	Tables       int      `json:"tables"`
	Indexes      int      `json:"indexes"`
	Models       int      `json:"models"`
	PrimaryModel string   `json:"primary_model"`
}

// GetStats returns configuration statistics.
func (c *Config) GetStats() Stats {
	return Stats{
		Agents:       c.Agents.Len(),
		SafetyAgents: c.Agents.SafetyIDs(),
		Queries:      c.Queries.Len(),
		Tables:       c.Store.TableCount(),
		Indexes:      c.Store.IndexCount(),
		Models:       len(c.Models.Models),
		PrimaryModel: c.Models.Primary().ModelID,
	}
}
