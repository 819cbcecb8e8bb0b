// Package llm provides centralized LLM configuration and provider abstractions.
// It lets the rest of the pipeline address models by tier and provider name
// without knowing provider-specific call semantics.
package llm

// ModelTier represents the quality/cost level of a model
type ModelTier string

const (
	// TierLite is the cheapest tier; not routed to by default
	TierLite ModelTier = "lite"
	// TierStandard is the default tier for simple and fallback generation
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for complex jobs while budget allows
	TierAdvanced ModelTier = "advanced"
)

// ProviderName identifies an LLM provider
type ProviderName string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini ProviderName = "gemini"
	// ProviderAnthropic is the Anthropic Messages API provider
	ProviderAnthropic ProviderName = "anthropic"
)

// Rate is a provider price in USD per million tokens.
type Rate struct {
	InputPerMTok  float64 `yaml:"input_per_mtok" json:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" json:"output_per_mtok"`
}

// Cost returns the USD cost of a call with the given token counts.
func (r Rate) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*r.InputPerMTok/1e6 + float64(completionTokens)*r.OutputPerMTok/1e6
}

// ProviderConfig holds the model configuration for one provider
type ProviderConfig struct {
	Name            ProviderName         `yaml:"name"`
	APIKey          string               `yaml:"-"`
	BaseURL         string               `yaml:"base_url,omitempty"`
	Models          map[ModelTier]string `yaml:"models"`
	Rates           map[ModelTier]Rate   `yaml:"rates"`
	MaxOutputTokens int                  `yaml:"max_output_tokens"`
}

// Config holds the configuration for every provider, in routing preference order.
type Config struct {
	Providers []ProviderConfig
}

// DefaultConfig returns Gemini as the primary provider and Anthropic as the secondary.
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{
			DefaultGeminiConfig(),
			DefaultAnthropicConfig(),
		},
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() ProviderConfig {
	return ProviderConfig{
		Name: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Rates: map[ModelTier]Rate{
			TierLite:     {InputPerMTok: 0.10, OutputPerMTok: 0.40},
			TierStandard: {InputPerMTok: 0.30, OutputPerMTok: 2.50},
			TierAdvanced: {InputPerMTok: 1.25, OutputPerMTok: 10.00},
		},
		MaxOutputTokens: 4096,
	}
}

// DefaultAnthropicConfig returns the default Anthropic configuration.
// Only the standard tier is routed to by default.
func DefaultAnthropicConfig() ProviderConfig {
	return ProviderConfig{
		Name:    ProviderAnthropic,
		BaseURL: "https://api.anthropic.com",
		Models: map[ModelTier]string{
			TierStandard: "claude-sonnet-4-20250514",
		},
		Rates: map[ModelTier]Rate{
			TierStandard: {InputPerMTok: 3.00, OutputPerMTok: 15.00},
		},
		MaxOutputTokens: 4096,
	}
}

// Provider returns the configuration for a provider, or nil if absent.
func (c *Config) Provider(name ProviderName) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

// GetModel returns the model name for a given tier
func (p *ProviderConfig) GetModel(tier ModelTier) string {
	if model, ok := p.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := p.Models[TierStandard]; ok {
		return model
	}
	if model, ok := p.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// HasTier reports whether the provider declares a model for exactly this tier.
func (p *ProviderConfig) HasTier(tier ModelTier) bool {
	_, ok := p.Models[tier]
	return ok
}

// GetRate returns the rate for a tier, falling back like GetModel.
func (p *ProviderConfig) GetRate(tier ModelTier) Rate {
	if rate, ok := p.Rates[tier]; ok {
		return rate
	}
	if rate, ok := p.Rates[TierStandard]; ok {
		return rate
	}
	return p.Rates[TierLite]
}

// WithModel returns a copy of the provider config with a specific model for a tier
func (p ProviderConfig) WithModel(tier ModelTier, model string) ProviderConfig {
	models := make(map[ModelTier]string, len(p.Models)+1)
	for k, v := range p.Models {
		models[k] = v
	}
	models[tier] = model
	p.Models = models
	return p
}
