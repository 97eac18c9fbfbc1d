// Package llm wraps the generative model behind a small tiered client.
// Narrative prompts pick a tier; Config maps tiers to concrete Gemini models.
package llm

// ModelTier is the capability level a prompt asks for.
type ModelTier string

const (
	// TierLite serves interview questions and short summaries.
	TierLite ModelTier = "lite"
	// TierStandard serves profile analysis and portfolio copy.
	TierStandard ModelTier = "standard"
	// TierAdvanced serves craftsmanship scoring and recruiter insights.
	TierAdvanced ModelTier = "advanced"
)

// Provider names a model vendor. Only Gemini is wired.
type Provider string

// ProviderGemini is the Google Gemini provider.
const ProviderGemini Provider = "gemini"

var tiers = []ModelTier{TierLite, TierStandard, TierAdvanced}

// Config maps each tier to a model name.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the Gemini tier mapping.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model for tier. A missing tier falls back to standard,
// then lite; "" means nothing is configured.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model := c.Models[t]; model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of c with tier mapped to model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{Provider: c.Provider, Models: make(map[ModelTier]string, len(c.Models)+1)}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.Models[tier] = model
	return out
}

// FromModelOverride returns the default mapping with every tier replaced by
// model when it is set. This backs GEMINI_MODEL.
func FromModelOverride(model string) *Config {
	cfg := DefaultConfig()
	if model == "" {
		return cfg
	}
	for _, tier := range tiers {
		cfg.Models[tier] = model
	}
	return cfg
}
