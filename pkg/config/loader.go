package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	// TowerConfigFile holds agents, queries, store layout, and defaults.
	TowerConfigFile = "tower.yaml"
	// ModelsConfigFile holds the LLM fallback chain.
	ModelsConfigFile = "llm-models.yaml"
)

// TowerYAML is the file shape of tower.yaml. Every section is optional; user
// entries merge over the built-in catalogue, keyed by name.
type TowerYAML struct {
	Agents   map[string]AgentSpec `yaml:"agents,omitempty"`
	Queries  map[string]QueryDef  `yaml:"queries,omitempty"`
	Tables   map[string]TableDef  `yaml:"tables,omitempty"`
	Indexes  map[string]IndexDef  `yaml:"indexes,omitempty"`
	Defaults DefaultsYAML         `yaml:"defaults,omitempty"`
}

// ModelsYAML is the file shape of llm-models.yaml. A non-empty chain replaces
// the built-in chain wholesale; fallback order is positional.
type ModelsYAML struct {
	Models []ModelConfig `yaml:"models"`
}

// Load reads configuration from dir, merges it over the built-in catalogue,
// validates the result, and returns the assembled Config. Both files are
// optional; with neither present the built-in configuration is used as-is.
func Load(dir string) (*Config, error) {
	builtin := GetBuiltinConfig()

	tower, err := loadTowerYAML(filepath.Join(dir, TowerConfigFile))
	if err != nil {
		return nil, err
	}
	models, err := loadModelsYAML(filepath.Join(dir, ModelsConfigFile))
	if err != nil {
		return nil, err
	}

	agents := mergeCatalogue(builtin.Agents, tower.Agents)
	queries := mergeCatalogue(builtin.Queries, tower.Queries)
	tables := mergeCatalogue(builtin.Tables, tower.Tables)
	indexes := mergeCatalogue(builtin.Indexes, tower.Indexes)

	defaults, err := resolveDefaults(tower.Defaults)
	if err != nil {
		return nil, NewLoadError(TowerConfigFile, err)
	}

	chain := builtin.Models
	if len(models.Models) > 0 {
		chain = ModelChainConfig{Models: models.Models}
	}

	cfg := &Config{
		Defaults: defaults,
		Agents:   NewAgentRegistry(agents),
		Queries:  NewQueryRegistry(queries),
		Store:    NewStoreRegistry(tables, indexes),
		Models:   chain,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"dir", dir,
		"agents", cfg.Agents.Len(),
		"safety_agents", len(cfg.Agents.SafetyIDs()),
		"queries", cfg.Queries.Len(),
		"tables", cfg.Store.TableCount(),
		"indexes", cfg.Store.IndexCount(),
		"models", len(cfg.Models.Models))
	return cfg, nil
}

func loadTowerYAML(path string) (*TowerYAML, error) {
	var tower TowerYAML
	if err := loadYAML(path, &tower); err != nil {
		return nil, err
	}
	return &tower, nil
}

func loadModelsYAML(path string) (*ModelsYAML, error) {
	var models ModelsYAML
	if err := loadYAML(path, &models); err != nil {
		return nil, err
	}
	return &models, nil
}

// loadYAML reads path, expands {{.VAR}} environment references, and
// unmarshals into out. A missing file leaves out at its zero value.
func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("Configuration file not present, using builtins", "file", path)
			return nil
		}
		return NewLoadError(filepath.Base(path), err)
	}

	if err := yaml.Unmarshal(ExpandEnv(data), out); err != nil {
		return NewLoadError(filepath.Base(path), fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return nil
}

// mergeCatalogue overlays user entries on the built-in catalogue. Within an
// entry present in both, set user fields win and unset ones keep the builtin
// value, so an override can adjust a single field of a built-in agent.
func mergeCatalogue[T any](builtin, user map[string]T) map[string]*T {
	out := make(map[string]*T, len(builtin)+len(user))
	for name, def := range builtin {
		d := def
		out[name] = &d
	}
	for name, def := range user {
		d := def
		if base, ok := builtin[name]; ok {
			if err := mergo.Merge(&d, base); err != nil {
				slog.Warn("Catalogue merge failed, using override as-is",
					"entry", name, "error", err)
			}
		}
		out[name] = &d
	}
	return out
}

// resolveDefaults applies YAML overrides on top of the built-in defaults,
// parsing duration strings.
func resolveDefaults(y DefaultsYAML) (*Defaults, error) {
	d := DefaultDefaults()

	for _, f := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"agent_timeout", y.AgentTimeout, &d.AgentTimeout},
		{"phase_timeout", y.PhaseTimeout, &d.PhaseTimeout},
		{"global_timeout", y.GlobalTimeout, &d.GlobalTimeout},
	} {
		if f.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(f.value)
		if err != nil {
			return nil, NewValidationError("defaults", f.name, "", err)
		}
		if parsed <= 0 {
			return nil, NewValidationError("defaults", f.name, "",
				fmt.Errorf("must be positive, got %s", parsed))
		}
		*f.dst = parsed
	}

	if y.MaxConcurrentAgents > 0 {
		d.MaxConcurrentAgents = y.MaxConcurrentAgents
	}
	if y.MaxIterations > 0 {
		d.MaxIterations = y.MaxIterations
	}
	if y.ScoringWeights != nil {
		d.Weights = *y.ScoringWeights
	}
	return d, nil
}
