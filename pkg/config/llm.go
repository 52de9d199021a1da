package config

// ModelProvider identifies which SDK adapter serves a model.
type ModelProvider string

const (
	// ProviderBedrock invokes models through the AWS Bedrock Converse API.
	ProviderBedrock ModelProvider = "bedrock"
	// ProviderAnthropic invokes models through the Anthropic Messages API.
	ProviderAnthropic ModelProvider = "anthropic"
)

// IsValid checks if the provider is a known value.
func (p ModelProvider) IsValid() bool {
	return p == ProviderBedrock || p == ProviderAnthropic
}

// ModelConfig declares one candidate model of the fallback chain.
type ModelConfig struct {
	Provider ModelProvider `yaml:"provider"`
	ModelID  string        `yaml:"model_id"`

	// Region applies to bedrock models; empty uses the ambient AWS region.
	Region string `yaml:"region,omitempty"`

	// APIKeyEnv names the environment variable holding the API key for
	// anthropic models. Defaults to ANTHROPIC_API_KEY.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// ModelChainConfig is the ordered fallback chain. The first entry is the
// designated primary; subsequent entries are tried, in order, only on
// throttling errors.
type ModelChainConfig struct {
	Models []ModelConfig `yaml:"models"`
}

// Primary returns the designated primary model config.
// Callers must validate the chain is non-empty first.
func (c *ModelChainConfig) Primary() ModelConfig {
	return c.Models[0]
}
