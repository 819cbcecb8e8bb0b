// Package invoker calls models down a fallback chain, one attempt per entry.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/workflow-generator/internal/cost"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/prompts"
	"github.com/jonathan/workflow-generator/internal/routing"
	"github.com/jonathan/workflow-generator/internal/types"
)

// DefaultTimeout is the per-call deadline.
const DefaultTimeout = 30 * time.Second

// ErrChainExhausted means no entry in the chain produced a response.
var ErrChainExhausted = errors.New("fallback chain exhausted")

// ExhaustedError reports how the chain was exhausted.
type ExhaustedError struct {
	Entries int
	// BudgetRejected counts entries refused by the cost gate.
	BudgetRejected int
	Last           string
}

func (e *ExhaustedError) Error() string {
	if e.Last == "" {
		return fmt.Sprintf("%s after %d entries", ErrChainExhausted, e.Entries)
	}
	return fmt.Sprintf("%s after %d entries: %s", ErrChainExhausted, e.Entries, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrChainExhausted
}

// OnlyBudget reports whether every entry was refused by the cost gate.
func (e *ExhaustedError) OnlyBudget() bool {
	return e.Entries > 0 && e.BudgetRejected == e.Entries
}

// Gate authorizes and prices calls. cost.Monitor implements it.
type Gate interface {
	Authorize(q cost.Quote) (*cost.Reservation, error)
	Record(res *cost.Reservation, attempt types.GenerationAttempt) types.GenerationAttempt
	Release(res *cost.Reservation)
}

// Call pairs a chain entry with the prompt built for its tier.
type Call struct {
	Entry  routing.Entry
	Prompt *prompts.Prompt
}

// Response is the raw text of the first successful call.
type Response struct {
	Text    string
	Entry   routing.Entry
	Attempt types.GenerationAttempt
}

// RateLimit is a client-side request rate for one provider.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// Options configures an Invoker.
type Options struct {
	Timeout time.Duration
	// MaxQueueWait bounds how long a call waits on the local rate limiter
	// before the entry counts as rate limited.
	MaxQueueWait time.Duration
	RateLimits   map[llm.ProviderName]RateLimit
	Logger       *slog.Logger
}

// Invoker runs fallback chains. It is safe for concurrent use.
type Invoker struct {
	providers map[llm.ProviderName]llm.Provider
	gate      Gate
	limiters  map[llm.ProviderName]*rate.Limiter
	timeout   time.Duration
	maxWait   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Invoker over the registered providers.
func New(providers map[llm.ProviderName]llm.Provider, gate Gate, opts Options) *Invoker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxQueueWait <= 0 {
		opts.MaxQueueWait = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	limiters := make(map[llm.ProviderName]*rate.Limiter, len(opts.RateLimits))
	for name, rl := range opts.RateLimits {
		if rl.RequestsPerSecond <= 0 {
			continue
		}
		burst := rl.Burst
		if burst < 1 {
			burst = 1
		}
		limiters[name] = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}
	return &Invoker{
		providers: providers,
		gate:      gate,
		limiters:  limiters,
		timeout:   opts.Timeout,
		maxWait:   opts.MaxQueueWait,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Invoke tries each call in order and returns the first success. Every
// attempt, successful or not, is returned. A cancelled ctx stops the chain
// before the next entry but does not abort a call already in flight beyond
// what the provider honours.
func (inv *Invoker) Invoke(ctx context.Context, jobID string, calls []Call) (*Response, []types.GenerationAttempt, error) {
	var (
		attempts []types.GenerationAttempt
		rejected int
		last     string
	)

	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}
		entry := call.Entry
		log := inv.logger.With("job_id", jobID, "entry", entry.String(), "model", entry.Model)

		base := types.GenerationAttempt{
			JobID:        jobID,
			Tier:         entry.Tier,
			Provider:     string(entry.Provider),
			Model:        entry.Model,
			PromptTokens: call.Prompt.Tokens,
		}

		provider, ok := inv.providers[entry.Provider]
		if !ok {
			last = fmt.Sprintf("provider %s not registered", entry.Provider)
			attempts = append(attempts, inv.gate.Record(nil, inv.stamp(base, types.OutcomeError, last, 0)))
			continue
		}

		res, err := inv.gate.Authorize(cost.Quote{
			Provider:        string(entry.Provider),
			Tier:            entry.Tier,
			PromptTokens:    call.Prompt.Tokens,
			MaxOutputTokens: entry.MaxOutputTokens,
			Rate:            entry.Rate,
		})
		if err != nil {
			rejected++
			last = err.Error()
			log.Warn("call rejected by budget", "error", err)
			base.PromptTokens = 0
			attempts = append(attempts, inv.gate.Record(nil, inv.stamp(base, types.OutcomeRejected, last, 0)))
			continue
		}

		if err := inv.waitLimiter(ctx, entry.Provider); err != nil {
			inv.gate.Release(res)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, attempts, ctxErr
			}
			last = "local rate limit: " + err.Error()
			log.Warn("call held back by local rate limit")
			base.PromptTokens = 0
			attempts = append(attempts, inv.gate.Record(nil, inv.stamp(base, types.OutcomeRateLimited, last, 0)))
			continue
		}

		start := inv.now()
		callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
		result := provider.Generate(callCtx, llm.Request{
			System:          call.Prompt.System,
			Prompt:          call.Prompt.User,
			Model:           entry.Model,
			MaxOutputTokens: entry.MaxOutputTokens,
			JSON:            true,
		})
		cancel()
		elapsed := inv.now().Sub(start)

		attempt := inv.classify(base, result, elapsed)
		attempt = inv.gate.Record(res, attempt)
		attempts = append(attempts, attempt)

		if s, ok := result.(llm.Success); ok {
			log.Info("generation succeeded",
				"prompt_tokens", attempt.PromptTokens,
				"completion_tokens", attempt.CompletionTokens,
				"cost_usd", attempt.CostUSD,
				"duration_ms", attempt.DurationMs)
			return &Response{Text: s.Text, Entry: entry, Attempt: attempt}, attempts, nil
		}

		last = attempt.Error
		log.Warn("generation failed, advancing chain", "outcome", attempt.Outcome, "error", attempt.Error)
	}

	return nil, attempts, &ExhaustedError{Entries: len(calls), BudgetRejected: rejected, Last: last}
}

func (inv *Invoker) waitLimiter(ctx context.Context, name llm.ProviderName) error {
	lim, ok := inv.limiters[name]
	if !ok {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, inv.maxWait)
	defer cancel()
	return lim.Wait(waitCtx)
}

// classify turns a provider Result into an attempt record.
func (inv *Invoker) classify(base types.GenerationAttempt, result llm.Result, elapsed time.Duration) types.GenerationAttempt {
	switch r := result.(type) {
	case llm.Success:
		if r.PromptTokens > 0 {
			base.PromptTokens = r.PromptTokens
		}
		base.CompletionTokens = r.CompletionTokens
		return inv.stamp(base, types.OutcomeSuccess, "", elapsed)
	case llm.Timeout:
		if r.After == 0 {
			r.After = inv.timeout
		}
		return inv.stamp(base, types.OutcomeTimeout, llm.Describe(r), elapsed)
	case llm.RateLimited:
		return inv.stamp(base, types.OutcomeRateLimited, llm.Describe(r), elapsed)
	default:
		return inv.stamp(base, types.OutcomeError, llm.Describe(result), elapsed)
	}
}

func (inv *Invoker) stamp(a types.GenerationAttempt, outcome types.AttemptOutcome, msg string, elapsed time.Duration) types.GenerationAttempt {
	a.Outcome = outcome
	a.Error = msg
	a.DurationMs = elapsed.Milliseconds()
	a.At = inv.now()
	return a
}
