// Package config loads process configuration from the environment and an
// optional YAML tuning file. It is read once at start and never mutated.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/workflow-generator/internal/llm"
)

// Config is the process configuration.
type Config struct {
	Port int

	DatabaseURL     string
	RedisURL        string
	CatalogURL      string
	CatalogCacheTTL time.Duration

	GeminiAPIKey    string
	AnthropicAPIKey string

	AdvancedTierEnabled bool
	DailyBudgetUSD      float64
	PerCallBudgetUSD    float64

	// GenerationTimeout bounds one provider call.
	GenerationTimeout time.Duration
	// JobTimeout bounds one job end to end.
	JobTimeout        time.Duration
	MaxConcurrentJobs int

	LogLevel  string
	LogFormat string

	TuningFile string
	Tuning     Tuning
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:              8080,
		CatalogCacheTTL:   time.Hour,
		DailyBudgetUSD:    10,
		PerCallBudgetUSD:  0.5,
		GenerationTimeout: 30 * time.Second,
		JobTimeout:        3 * time.Minute,
		MaxConcurrentJobs: 4,
		LogLevel:          "info",
		LogFormat:         "text",
		Tuning:            DefaultTuning(),
	}
}

// Load reads the environment, then the tuning file named by TUNING_FILE.
// Budget values from the environment win over the tuning file.
func Load() (*Config, error) {
	cfg := Default()
	var errs []error
	env := envReader{errs: &errs}

	cfg.Port = env.Int("PORT", cfg.Port)
	cfg.DatabaseURL = env.String("DATABASE_URL", "")
	cfg.RedisURL = env.String("REDIS_URL", "")
	cfg.CatalogURL = env.String("CATALOG_URL", "")
	cfg.CatalogCacheTTL = env.Duration("CATALOG_CACHE_TTL", cfg.CatalogCacheTTL)
	cfg.GeminiAPIKey = env.String("GEMINI_API_KEY", "")
	cfg.AnthropicAPIKey = env.String("ANTHROPIC_API_KEY", "")
	cfg.AdvancedTierEnabled = env.Bool("ADVANCED_TIER_ENABLED", false)
	cfg.GenerationTimeout = env.Duration("GENERATION_TIMEOUT", cfg.GenerationTimeout)
	cfg.JobTimeout = env.Duration("JOB_TIMEOUT", cfg.JobTimeout)
	cfg.MaxConcurrentJobs = env.Int("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs)
	cfg.LogLevel = env.String("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env.String("LOG_FORMAT", cfg.LogFormat)
	cfg.TuningFile = env.String("TUNING_FILE", "")

	if cfg.TuningFile != "" {
		tuning, err := LoadTuning(cfg.TuningFile)
		if err != nil {
			return nil, err
		}
		cfg.Tuning = *tuning
		if tuning.Budget.DailyUSD != nil {
			cfg.DailyBudgetUSD = *tuning.Budget.DailyUSD
		}
		if tuning.Budget.PerCallUSD != nil {
			cfg.PerCallBudgetUSD = *tuning.Budget.PerCallUSD
		}
	}

	cfg.DailyBudgetUSD = env.Float("DAILY_BUDGET_USD", cfg.DailyBudgetUSD)
	cfg.PerCallBudgetUSD = env.Float("PER_CALL_BUDGET_USD", cfg.PerCallBudgetUSD)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LLMConfig returns the provider configuration with credentials applied.
func (c *Config) LLMConfig() *llm.Config {
	out := &llm.Config{Providers: make([]llm.ProviderConfig, len(c.Tuning.Providers))}
	copy(out.Providers, c.Tuning.Providers)
	for i := range out.Providers {
		switch out.Providers[i].Name {
		case llm.ProviderGemini:
			out.Providers[i].APIKey = c.GeminiAPIKey
		case llm.ProviderAnthropic:
			out.Providers[i].APIKey = c.AnthropicAPIKey
		}
	}
	return out
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config error: PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DailyBudgetUSD < 0 {
		errs = append(errs, errors.New("config error: DAILY_BUDGET_USD must be non-negative"))
	}
	if c.PerCallBudgetUSD < 0 {
		errs = append(errs, errors.New("config error: PER_CALL_BUDGET_USD must be non-negative"))
	}
	if c.DailyBudgetUSD > 0 && c.PerCallBudgetUSD > c.DailyBudgetUSD {
		errs = append(errs, errors.New("config error: PER_CALL_BUDGET_USD must not exceed DAILY_BUDGET_USD"))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("config error: GENERATION_TIMEOUT must be positive"))
	}
	if c.JobTimeout <= 0 {
		errs = append(errs, errors.New("config error: JOB_TIMEOUT must be positive"))
	}
	if c.MaxConcurrentJobs <= 0 {
		errs = append(errs, errors.New("config error: MAX_CONCURRENT_JOBS must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config error: LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if err := c.Tuning.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// envReader parses typed environment variables, collecting malformed values.
type envReader struct {
	errs *[]error
}

func (r envReader) String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r envReader) Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("config error: %s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (r envReader) Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("config error: %s: invalid number %q", key, v))
		return def
	}
	return f
}

func (r envReader) Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("config error: %s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (r envReader) Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("config error: %s: invalid duration %q", key, v))
		return def
	}
	return d
}
