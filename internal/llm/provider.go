package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single generation request.
type Request struct {
	System          string
	Prompt          string
	Model           string
	MaxOutputTokens int
	JSON            bool
}

// Provider is an abstraction over LLM providers. Implementations never return
// a Go error from Generate; every outcome is expressed as a Result.
type Provider interface {
	// Name identifies the provider in routing and metrics
	Name() ProviderName
	// Generate performs one call and classifies its outcome
	Generate(ctx context.Context, req Request) Result
	// Close releases any resources held by the provider
	Close() error
}

// NewProviders creates a provider for every configured entry that has credentials.
// Entries without an API key are skipped so a deployment can run on one provider.
func NewProviders(ctx context.Context, config *Config) (map[ProviderName]Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	providers := make(map[ProviderName]Provider)
	for _, pc := range config.Providers {
		if pc.APIKey == "" {
			continue
		}
		var (
			p   Provider
			err error
		)
		switch pc.Name {
		case ProviderGemini:
			p, err = NewGeminiProvider(ctx, pc)
		case ProviderAnthropic:
			p, err = NewAnthropicProvider(pc)
		default:
			err = fmt.Errorf("unsupported provider %q", pc.Name)
		}
		if err != nil {
			closeAll(providers)
			return nil, err
		}
		providers[pc.Name] = p
	}
	if len(providers) == 0 {
		return nil, errors.New("no LLM provider configured: set GEMINI_API_KEY or ANTHROPIC_API_KEY")
	}
	return providers, nil
}

func closeAll(providers map[ProviderName]Provider) {
	for _, p := range providers {
		_ = p.Close()
	}
}

// classifyContextErr maps a context error to a Result, or nil if err is not one.
func classifyContextErr(ctx context.Context, err error) Result {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Timeout{}
	}
	if errors.Is(err, context.Canceled) {
		return ProviderError{Code: "cancelled", Err: err}
	}
	return nil
}
