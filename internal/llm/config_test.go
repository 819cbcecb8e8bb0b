package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Len(t, config.Providers, 2)

	gemini := config.Provider(ProviderGemini)
	require.NotNil(t, gemini)
	assert.Equal(t, "gemini-2.5-flash-lite", gemini.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", gemini.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", gemini.GetModel(TierAdvanced))

	anthropic := config.Provider(ProviderAnthropic)
	require.NotNil(t, anthropic)
	assert.True(t, anthropic.HasTier(TierStandard))
	assert.False(t, anthropic.HasTier(TierAdvanced))
}

func TestGetModel_Fallback(t *testing.T) {
	config := ProviderConfig{
		Name:   ProviderGemini,
		Models: map[ModelTier]string{TierLite: "fallback-model"},
	}

	// Unknown tier should fall back to standard, then lite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := ProviderConfig{Name: ProviderGemini, Models: map[ModelTier]string{}}
	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultGeminiConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
}

func TestRateCost(t *testing.T) {
	rate := Rate{InputPerMTok: 1.25, OutputPerMTok: 10}
	assert.InDelta(t, 0.00125+0.01, rate.Cost(1000, 1000), 1e-12)
	assert.Zero(t, rate.Cost(0, 0))
}

func TestGetRate_Fallback(t *testing.T) {
	config := DefaultAnthropicConfig()
	assert.Equal(t, config.Rates[TierStandard], config.GetRate(TierAdvanced))
}

func TestProvider_Missing(t *testing.T) {
	config := &Config{}
	assert.Nil(t, config.Provider(ProviderGemini))
}

func TestNewProviders_NoCredentials(t *testing.T) {
	_, err := NewProviders(t.Context(), DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no LLM provider configured")
}

func TestNewProviders_AnthropicOnly(t *testing.T) {
	config := DefaultConfig()
	config.Providers[1].APIKey = "test-key"

	providers, err := NewProviders(t.Context(), config)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, ProviderAnthropic, providers[ProviderAnthropic].Name())
}

func TestModelTierConstants(t *testing.T) {
	assert.Equal(t, ModelTier("lite"), TierLite)
	assert.Equal(t, ModelTier("standard"), TierStandard)
	assert.Equal(t, ModelTier("advanced"), TierAdvanced)
}
