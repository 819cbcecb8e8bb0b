// Package routing builds the ordered provider/tier fallback chain for a job.
package routing

import (
	"fmt"

	"github.com/jonathan/workflow-generator/internal/llm"
)

// Flags are the routing feature flags, read once at start.
type Flags struct {
	AdvancedTierEnabled bool
}

// BudgetGate reports whether the advanced tier is still affordable.
type BudgetGate interface {
	AdvancedAllowed() bool
}

// Entry is one step of a fallback chain.
type Entry struct {
	Provider        llm.ProviderName `json:"provider"`
	Tier            llm.ModelTier    `json:"tier"`
	Model           string           `json:"model"`
	Rate            llm.Rate         `json:"rate"`
	MaxOutputTokens int              `json:"max_output_tokens"`
}

// String renders the entry as "tier-provider".
func (e Entry) String() string {
	return fmt.Sprintf("%s-%s", e.Tier, e.Provider)
}

// Router chooses fallback chains. It holds no mutable state of its own.
type Router struct {
	config    *llm.Config
	available map[llm.ProviderName]bool
	flags     Flags
	gate      BudgetGate
}

// NewRouter creates a Router. Only providers in available are routed to;
// a nil list routes to every configured provider.
func NewRouter(config *llm.Config, available []llm.ProviderName, flags Flags, gate BudgetGate) *Router {
	if config == nil {
		config = llm.DefaultConfig()
	}
	var set map[llm.ProviderName]bool
	if available != nil {
		set = make(map[llm.ProviderName]bool, len(available))
		for _, name := range available {
			set[name] = true
		}
	}
	return &Router{config: config, available: set, flags: flags, gate: gate}
}

// Chain returns the fallback chain for a recommended tier. Advanced entries
// lead only when recommended, enabled, and within budget; standard entries
// always follow in configured provider order.
func (r *Router) Chain(recommended llm.ModelTier) []Entry {
	var chain []Entry
	if recommended == llm.TierAdvanced && r.AdvancedAllowed() {
		chain = append(chain, r.entriesFor(llm.TierAdvanced)...)
	}
	return append(chain, r.entriesFor(llm.TierStandard)...)
}

// AdvancedAllowed reports whether advanced entries may be routed to right now.
func (r *Router) AdvancedAllowed() bool {
	if !r.flags.AdvancedTierEnabled {
		return false
	}
	return r.gate == nil || r.gate.AdvancedAllowed()
}

func (r *Router) entriesFor(tier llm.ModelTier) []Entry {
	var out []Entry
	for i := range r.config.Providers {
		pc := &r.config.Providers[i]
		if r.available != nil && !r.available[pc.Name] {
			continue
		}
		if !pc.HasTier(tier) {
			continue
		}
		out = append(out, Entry{
			Provider:        pc.Name,
			Tier:            tier,
			Model:           pc.GetModel(tier),
			Rate:            pc.GetRate(tier),
			MaxOutputTokens: pc.MaxOutputTokens,
		})
	}
	return out
}
