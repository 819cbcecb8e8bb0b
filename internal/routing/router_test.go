package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/llm"
)

type staticGate bool

func (g staticGate) AdvancedAllowed() bool { return bool(g) }

func names(chain []Entry) []string {
	out := make([]string, len(chain))
	for i, e := range chain {
		out[i] = e.String()
	}
	return out
}

func TestChain_AdvancedFirstWhenAllowed(t *testing.T) {
	r := NewRouter(llm.DefaultConfig(), nil, Flags{AdvancedTierEnabled: true}, staticGate(true))

	chain := r.Chain(llm.TierAdvanced)
	assert.Equal(t, []string{"advanced-gemini", "standard-gemini", "standard-anthropic"}, names(chain))
	assert.Equal(t, "gemini-2.5-pro", chain[0].Model)
	assert.Equal(t, 1.25, chain[0].Rate.InputPerMTok)
}

func TestChain_StandardRecommendation(t *testing.T) {
	r := NewRouter(llm.DefaultConfig(), nil, Flags{AdvancedTierEnabled: true}, staticGate(true))
	assert.Equal(t, []string{"standard-gemini", "standard-anthropic"}, names(r.Chain(llm.TierStandard)))
}

func TestChain_BudgetExceededSkipsAdvanced(t *testing.T) {
	r := NewRouter(llm.DefaultConfig(), nil, Flags{AdvancedTierEnabled: true}, staticGate(false))

	chain := r.Chain(llm.TierAdvanced)
	for _, e := range chain {
		assert.NotEqual(t, llm.TierAdvanced, e.Tier)
	}
	assert.Equal(t, []string{"standard-gemini", "standard-anthropic"}, names(chain))
}

func TestChain_FlagDisabledSkipsAdvanced(t *testing.T) {
	r := NewRouter(llm.DefaultConfig(), nil, Flags{}, staticGate(true))
	assert.Equal(t, []string{"standard-gemini", "standard-anthropic"}, names(r.Chain(llm.TierAdvanced)))
	assert.False(t, r.AdvancedAllowed())
}

func TestChain_OnlyAvailableProviders(t *testing.T) {
	r := NewRouter(llm.DefaultConfig(), []llm.ProviderName{llm.ProviderAnthropic}, Flags{AdvancedTierEnabled: true}, nil)

	chain := r.Chain(llm.TierAdvanced)
	require.Len(t, chain, 1)
	assert.Equal(t, "standard-anthropic", chain[0].String())
}

func TestChain_AlwaysEndsWithStandard(t *testing.T) {
	r := NewRouter(llm.DefaultConfig(), nil, Flags{AdvancedTierEnabled: true}, staticGate(true))
	for _, tier := range []llm.ModelTier{llm.TierLite, llm.TierStandard, llm.TierAdvanced} {
		chain := r.Chain(tier)
		require.NotEmpty(t, chain)
		assert.Equal(t, llm.TierStandard, chain[len(chain)-1].Tier)
	}
}
