package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/config"
	"github.com/jonathan/workflow-generator/internal/cost"
	"github.com/jonathan/workflow-generator/internal/jobs"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/types"
)

type scriptedProvider struct {
	name llm.ProviderName
	text string
}

func (p *scriptedProvider) Name() llm.ProviderName { return p.name }

func (p *scriptedProvider) Generate(_ context.Context, req llm.Request) llm.Result {
	return llm.Success{Text: p.text, PromptTokens: llm.EstimateTokens(req.Prompt), CompletionTokens: 300}
}

func (p *scriptedProvider) Close() error { return nil }

const workflowJSON = "```json\n" + `{
  "name": "Classify finance emails",
  "nodes": [
    {"id": "trigger", "type": "emailTrigger", "name": "New email", "parameters": {}},
    {"id": "classify", "type": "aiTextClassifier", "name": "Classify", "parameters": {"categories": ["invoice", "other"]}},
    {"id": "log", "type": "googleSheets", "name": "Log", "parameters": {"operation": "append"}}
  ],
  "connections": [{"from": "trigger", "to": "classify"}, {"from": "classify", "to": "log"}]
}` + "\n```"

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	providers := map[llm.ProviderName]llm.Provider{
		llm.ProviderGemini: &scriptedProvider{name: llm.ProviderGemini, text: workflowJSON},
	}
	a, err := New(context.Background(), cfg, observability.Discard(), WithProviders(providers))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_BlueprintJob(t *testing.T) {
	a := newTestApp(t, config.Default())

	rec, err := a.Jobs.Run(context.Background(), jobs.IntakeRequest{
		ProcessDescription: "fetch data from REST API and transform it",
		AutomationOpportunities: []types.AutomationOpportunity{
			{Title: "Fetch orders", StepType: "http"},
			{Title: "Normalize orders", StepType: "transform"},
		},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, rec.Status, "error: %+v", rec.Error)
	assert.Equal(t, types.PathBlueprint, rec.Result.Workflow.Metadata.GenerationPath)
	assert.Zero(t, a.Monitor.Snapshot().DailySpendUSD)
}

func TestNew_ModelJobChargesBudget(t *testing.T) {
	a := newTestApp(t, config.Default())

	rec, err := a.Jobs.Run(context.Background(), jobs.IntakeRequest{
		ProcessDescription: "Use AI classification to sort incoming invoices from email and record them.",
		BusinessContext:    &types.BusinessContext{Industry: "financial services"},
		AutomationOpportunities: []types.AutomationOpportunity{
			{Title: "Watch inbox", Integrations: []string{"gmail"}},
			{Title: "Classify invoice", Integrations: []string{"openai"}},
			{Title: "Record in sheet", Integrations: []string{"sheets"}},
			{Title: "Mirror to base", Integrations: []string{"airtable"}},
		},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, rec.Status, "error: %+v", rec.Error)

	meta := rec.Result.Workflow.Metadata
	assert.Equal(t, types.PathModel, meta.GenerationPath)
	assert.Equal(t, "gemini-2.5-flash", meta.ModelUsed, "advanced tier is off by default")
	assert.Greater(t, a.Monitor.Snapshot().DailySpendUSD, 0.0)
	assert.InDelta(t, meta.CostUSD, a.Monitor.Snapshot().DailySpendUSD, 1e-12)
}

func TestNew_RestoresSpendFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	redisURL := "redis://" + mr.Addr()

	seed, err := cost.NewRedisLedger(redisURL, 0)
	require.NoError(t, err)
	require.NoError(t, seed.Append(context.Background(), types.GenerationAttempt{
		Provider: "gemini", CostUSD: 2.5, Outcome: types.OutcomeSuccess, At: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, seed.Close())

	cfg := config.Default()
	cfg.RedisURL = redisURL
	a := newTestApp(t, cfg)

	state := a.Monitor.Snapshot()
	assert.InDelta(t, 2.5, state.DailySpendUSD, 1e-9)
	assert.Equal(t, 1, state.Attempts)
	require.Contains(t, a.HealthChecks, "redis")
	assert.NoError(t, a.HealthChecks["redis"](context.Background()))
}

func TestNew_UnreachableRedis(t *testing.T) {
	cfg := config.Default()
	cfg.RedisURL = "redis://127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, cfg, observability.Discard(), WithProviders(map[llm.ProviderName]llm.Provider{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spend ledger")
}

func TestNew_NoProviders(t *testing.T) {
	cfg := config.Default()
	_, err := New(context.Background(), cfg, observability.Discard())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "GEMINI_API_KEY"))
}

func TestBudgetGaugesExported(t *testing.T) {
	a := newTestApp(t, config.Default())
	families, err := a.Metrics.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "workflowgen_budget_daily_spend_usd")
	assert.Contains(t, names, "workflowgen_budget_daily_limit_usd")
}
