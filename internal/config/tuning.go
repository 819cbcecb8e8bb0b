package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/workflow-generator/internal/complexity"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/prompts"
)

// Tuning holds the values operators adjust without a rebuild.
type Tuning struct {
	Complexity complexity.Config    `yaml:"complexity"`
	Prompts    prompts.Limits       `yaml:"prompts"`
	Providers  []llm.ProviderConfig `yaml:"providers"`
	Budget     BudgetTuning         `yaml:"budget"`
	// RateLimits are local per-provider request limits.
	RateLimits map[llm.ProviderName]ProviderRateLimit `yaml:"rate_limits"`
}

// BudgetTuning holds optional budget ceilings. Nil means unset.
type BudgetTuning struct {
	DailyUSD   *float64 `yaml:"daily_usd"`
	PerCallUSD *float64 `yaml:"per_call_usd"`
}

// ProviderRateLimit is a token bucket for one provider.
type ProviderRateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DefaultTuning returns the built-in tuning values.
func DefaultTuning() Tuning {
	return Tuning{
		Complexity: complexity.DefaultConfig(),
		Prompts:    prompts.DefaultLimits(),
		Providers:  llm.DefaultConfig().Providers,
	}
}

// LoadTuning reads a YAML tuning file over the defaults. Providers listed in
// the file replace the default list; fields they omit are filled from the
// built-in configuration of the same provider.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file %s: %w", path, err)
	}
	return ParseTuning(data)
}

// ParseTuning parses YAML tuning data over the defaults.
func ParseTuning(data []byte) (*Tuning, error) {
	t := DefaultTuning()
	t.Providers = nil
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning YAML: %w", err)
	}

	if len(t.Providers) == 0 {
		t.Providers = llm.DefaultConfig().Providers
	}
	defaults := llm.DefaultConfig()
	for i := range t.Providers {
		if d := defaults.Provider(t.Providers[i].Name); d != nil {
			t.Providers[i] = fillProvider(t.Providers[i], *d)
		}
	}
	return &t, nil
}

func fillProvider(p, d llm.ProviderConfig) llm.ProviderConfig {
	if p.BaseURL == "" {
		p.BaseURL = d.BaseURL
	}
	if len(p.Models) == 0 {
		p.Models = d.Models
	}
	if len(p.Rates) == 0 {
		p.Rates = d.Rates
	}
	if p.MaxOutputTokens == 0 {
		p.MaxOutputTokens = d.MaxOutputTokens
	}
	return p
}

// Validate checks the tuning values.
func (t *Tuning) Validate() error {
	var errs []error
	if t.Complexity.ComplexThreshold < 0 {
		errs = append(errs, errors.New("tuning error: complexity.complex_threshold must be non-negative"))
	}
	if t.Prompts.StandardMaxTokens < 0 || t.Prompts.AdvancedMaxTokens < 0 || t.Prompts.MinDescriptionChars < 0 {
		errs = append(errs, errors.New("tuning error: prompt limits must be non-negative"))
	}
	seen := make(map[llm.ProviderName]bool)
	for _, p := range t.Providers {
		switch p.Name {
		case llm.ProviderGemini, llm.ProviderAnthropic:
		default:
			errs = append(errs, fmt.Errorf("tuning error: unsupported provider %q", p.Name))
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("tuning error: provider %q listed twice", p.Name))
		}
		seen[p.Name] = true
		if len(p.Models) == 0 {
			errs = append(errs, fmt.Errorf("tuning error: provider %q has no models", p.Name))
		}
		for tier, rate := range p.Rates {
			if rate.InputPerMTok < 0 || rate.OutputPerMTok < 0 {
				errs = append(errs, fmt.Errorf("tuning error: provider %q tier %s has a negative rate", p.Name, tier))
			}
		}
	}
	for name, rl := range t.RateLimits {
		if rl.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("tuning error: rate_limits.%s.requests_per_second must be positive", name))
		}
	}
	return errors.Join(errs...)
}
