package cost

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/types"
)

func newTestLedger(t *testing.T) *RedisLedger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLedgerFromClient(client, 24*time.Hour)
}

func TestRedisLedger_AppendAndLoad(t *testing.T) {
	ctx := t.Context()
	ledger := newTestLedger(t)
	require.NoError(t, ledger.Ping(ctx))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Append(ctx, types.GenerationAttempt{
			JobID:    "job-1",
			Tier:     llm.TierStandard,
			Provider: "gemini",
			CostUSD:  0.01 * float64(i+1),
			Outcome:  types.OutcomeSuccess,
			At:       base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := ledger.Load(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.InDelta(t, 0.01, all[0].CostUSD, 1e-9)
	assert.InDelta(t, 0.03, all[2].CostUSD, 1e-9)

	recent, err := ledger.Load(ctx, base.Add(30*time.Second))
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestRedisLedger_TrimsOutsideWindow(t *testing.T) {
	ctx := t.Context()
	ledger := newTestLedger(t)

	old := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Append(ctx, types.GenerationAttempt{Provider: "gemini", At: old}))
	require.NoError(t, ledger.Append(ctx, types.GenerationAttempt{Provider: "anthropic", At: old.Add(25 * time.Hour)}))

	all, err := ledger.Load(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "anthropic", all[0].Provider)
}

func TestMonitor_RestoreFromLedger(t *testing.T) {
	ctx := t.Context()
	ledger := newTestLedger(t)
	c := newClock()

	first := NewMonitor(Limits{DailyLimitUSD: 1.0}, WithLedger(ledger), WithClock(c.Now))
	res, err := first.Authorize(quote(300_000, 300_000))
	require.NoError(t, err)
	first.Record(res, types.GenerationAttempt{Provider: "gemini", PromptTokens: 300_000, CompletionTokens: 300_000})

	second := NewMonitor(Limits{DailyLimitUSD: 1.0}, WithLedger(ledger), WithClock(c.Now))
	require.NoError(t, second.Restore(ctx))

	state := second.Snapshot()
	assert.InDelta(t, 0.6, state.DailySpendUSD, 1e-9)
	assert.Equal(t, 1, state.Attempts)
}
