package llm

import (
	"fmt"
	"time"
)

// Result is the outcome of one provider call. It is a closed set:
// Success, Timeout, ProviderError, or RateLimited.
type Result interface {
	isResult()
}

// Success carries the generated text and the provider-reported token usage.
type Success struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Timeout means the call did not complete within the per-call deadline.
type Timeout struct {
	After time.Duration
}

// ProviderError is any non-retryable failure reported by the provider or transport.
type ProviderError struct {
	Code       string
	StatusCode int
	Err        error
}

// RateLimited means the provider refused the call for quota reasons.
type RateLimited struct {
	RetryAfter time.Duration
}

func (Success) isResult()       {}
func (Timeout) isResult()       {}
func (ProviderError) isResult() {}
func (RateLimited) isResult()   {}

func (e ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error %s (status %d): %v", e.Code, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider error %s (status %d)", e.Code, e.StatusCode)
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// Describe returns a short human-readable description of a non-success result.
func Describe(r Result) string {
	switch v := r.(type) {
	case Success:
		return "success"
	case Timeout:
		return fmt.Sprintf("timed out after %s", v.After)
	case RateLimited:
		if v.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, retry after %s", v.RetryAfter)
		}
		return "rate limited"
	case ProviderError:
		return v.Error()
	default:
		return fmt.Sprintf("unknown result %T", r)
	}
}
