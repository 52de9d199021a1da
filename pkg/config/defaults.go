package config

import "time"

// Defaults contains system-wide default configurations, applied when the
// caller or YAML does not specify its own values.
type Defaults struct {
	// AgentTimeout bounds a single agent execution within a phase.
	AgentTimeout time.Duration

	// PhaseTimeout bounds a whole phase fan-out.
	PhaseTimeout time.Duration

	// GlobalTimeout bounds the end-to-end orchestration run.
	GlobalTimeout time.Duration

	// MaxConcurrentAgents bounds parallelism inside a phase.
	MaxConcurrentAgents int

	// MaxIterations bounds the tool-call loop per agent.
	MaxIterations int

	// Weights is the arbitrator's fixed scoring weighted sum.
	Weights ScoringWeights
}

// DefaultsYAML is the YAML shape of the defaults block; durations are
// strings parsed by the loader.
type DefaultsYAML struct {
	AgentTimeout        string          `yaml:"agent_timeout,omitempty"`
	PhaseTimeout        string          `yaml:"phase_timeout,omitempty"`
	GlobalTimeout       string          `yaml:"global_timeout,omitempty"`
	MaxConcurrentAgents int             `yaml:"max_concurrent_agents,omitempty"`
	MaxIterations       int             `yaml:"max_iterations,omitempty"`
	ScoringWeights      *ScoringWeights `yaml:"scoring_weights,omitempty"`
}

// DefaultDefaults returns the built-in default values.
func DefaultDefaults() *Defaults {
	return &Defaults{
		AgentTimeout:        60 * time.Second,
		PhaseTimeout:        90 * time.Second,
		GlobalTimeout:       300 * time.Second,
		MaxConcurrentAgents: 8,
		MaxIterations:       6,
		Weights: ScoringWeights{
			PassengerSatisfaction: 0.30,
			CostEfficiency:        0.25,
			DelayReduction:        0.25,
			ExecutionReliability:  0.20,
		},
	}
}
