// Package llm wraps the Gemini API for the optional genre classification step.
package llm

// ModelTier is the capability level requested for a call.
type ModelTier string

const (
	// TierLite is for short classification prompts
	TierLite ModelTier = "lite"
	// TierStandard is for prompts that need more context, such as long descriptions
	TierStandard ModelTier = "standard"
)

// Config maps tiers to model names. MaxOutputTokens caps answers when set.
type Config struct {
	Models          map[ModelTier]string
	MaxOutputTokens int32
}

// DefaultConfig returns the Gemini models used for classification.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		MaxOutputTokens: 256,
	}
}

// GetModel returns the model for tier, falling back to standard then lite.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of c with tier mapped to model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Models:          make(map[ModelTier]string, len(c.Models)+1),
		MaxOutputTokens: c.MaxOutputTokens,
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.Models[tier] = model
	return out
}
