package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/llm"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "CATALOG_URL", "CATALOG_CACHE_TTL",
		"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "ADVANCED_TIER_ENABLED",
		"DAILY_BUDGET_USD", "PER_CALL_BUDGET_USD", "GENERATION_TIMEOUT", "JOB_TIMEOUT",
		"MAX_CONCURRENT_JOBS", "LOG_LEVEL", "LOG_FORMAT", "TUNING_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
	assert.False(t, cfg.AdvancedTierEnabled)
	assert.Equal(t, 4, cfg.Tuning.Complexity.ComplexThreshold)
	assert.Len(t, cfg.Tuning.Providers, 2)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("ADVANCED_TIER_ENABLED", "true")
	t.Setenv("DAILY_BUDGET_USD", "25")
	t.Setenv("PER_CALL_BUDGET_USD", "1.5")
	t.Setenv("GENERATION_TIMEOUT", "45s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.AdvancedTierEnabled)
	assert.Equal(t, 25.0, cfg.DailyBudgetUSD)
	assert.Equal(t, 1.5, cfg.PerCallBudgetUSD)
	assert.Equal(t, 45*time.Second, cfg.GenerationTimeout)

	llmCfg := cfg.LLMConfig()
	assert.Equal(t, "gemini-key", llmCfg.Provider(llm.ProviderGemini).APIKey)
	assert.Empty(t, llmCfg.Provider(llm.ProviderAnthropic).APIKey)
	assert.Empty(t, cfg.Tuning.Providers[0].APIKey, "LLMConfig must not mutate tuning")
}

func TestLoad_MalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("GENERATION_TIMEOUT", "soon")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "GENERATION_TIMEOUT")
}

func TestLoad_TuningFile(t *testing.T) {
	clearEnv(t)
	content := `
complexity:
  complex_threshold: 6
  ai_processing_weight: 3
prompts:
  standard_max_tokens: 3000
providers:
  - name: gemini
    models:
      standard: gemini-2.5-flash
budget:
  daily_usd: 5
  per_call_usd: 0.25
rate_limits:
  gemini:
    requests_per_second: 2
    burst: 4
`
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("TUNING_FILE", path)
	t.Setenv("PER_CALL_BUDGET_USD", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Tuning.Complexity.ComplexThreshold)
	assert.Equal(t, 3, cfg.Tuning.Complexity.AIProcessingWeight)
	assert.Equal(t, 3, cfg.Tuning.Complexity.StepCountWeight, "unset weights keep defaults")
	assert.Equal(t, 3000, cfg.Tuning.Prompts.StandardMaxTokens)
	assert.Equal(t, 4500, cfg.Tuning.Prompts.AdvancedMaxTokens)

	require.Len(t, cfg.Tuning.Providers, 1)
	gemini := cfg.Tuning.Providers[0]
	assert.Equal(t, "gemini-2.5-flash", gemini.GetModel(llm.TierAdvanced))
	assert.Equal(t, 0.30, gemini.GetRate(llm.TierStandard).InputPerMTok, "rates filled from defaults")
	assert.Equal(t, 4096, gemini.MaxOutputTokens)

	assert.Equal(t, 5.0, cfg.DailyBudgetUSD)
	assert.Equal(t, 0.5, cfg.PerCallBudgetUSD, "environment wins over tuning file")
	assert.Equal(t, ProviderRateLimit{RequestsPerSecond: 2, Burst: 4}, cfg.Tuning.RateLimits[llm.ProviderGemini])
	require.NoError(t, cfg.Validate())
}

func TestLoadTuning_Errors(t *testing.T) {
	_, err := LoadTuning("/nonexistent/tuning.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read tuning file")

	_, err = ParseTuning([]byte("complexity: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse tuning YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"negative daily", func(c *Config) { c.DailyBudgetUSD = -1 }, "DAILY_BUDGET_USD"},
		{"negative per call", func(c *Config) { c.PerCallBudgetUSD = -1 }, "PER_CALL_BUDGET_USD must be non-negative"},
		{"per call above daily", func(c *Config) { c.DailyBudgetUSD = 1; c.PerCallBudgetUSD = 2 }, "must not exceed"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentJobs = 0 }, "MAX_CONCURRENT_JOBS"},
		{"zero timeout", func(c *Config) { c.GenerationTimeout = 0 }, "GENERATION_TIMEOUT"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"unknown provider", func(c *Config) {
			c.Tuning.Providers = append(c.Tuning.Providers, llm.ProviderConfig{Name: "openai", Models: map[llm.ModelTier]string{llm.TierStandard: "x"}})
		}, "unsupported provider"},
		{"bad rate limit", func(c *Config) {
			c.Tuning.RateLimits = map[llm.ProviderName]ProviderRateLimit{llm.ProviderGemini: {}}
		}, "requests_per_second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
