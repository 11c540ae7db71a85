// Package llm wraps the generative model provider used by the content oracle.
package llm

// ModelTier selects a model by capability rather than by name.
type ModelTier string

const (
	// TierLite serves short scoring calls.
	TierLite ModelTier = "lite"
	// TierStandard serves structured generation such as question sets.
	TierStandard ModelTier = "standard"
)

// Provider names an LLM provider.
type Provider string

const ProviderGemini Provider = "gemini"

// Config holds provider, per-tier model names and generation settings.
type Config struct {
	Provider        Provider
	Models          map[ModelTier]string
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultConfig returns the default Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		Temperature:     0.7,
		MaxOutputTokens: 2048,
	}
}

// GetModel returns the model name for a tier, falling back to the standard tier.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok && model != "" {
		return model
	}
	return c.Models[TierStandard]
}

// WithModel returns a copy of the config using model for every tier.
// An empty model leaves the config unchanged.
func (c *Config) WithModel(model string) *Config {
	out := *c
	out.Models = make(map[ModelTier]string, len(c.Models))
	for k, v := range c.Models {
		out.Models[k] = v
		if model != "" {
			out.Models[k] = model
		}
	}
	return &out
}
