package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/workflow-generator/internal/cost"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/types"
)

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis(&types.ComplexityAnalysis{
		Score:           7,
		Classification:  types.ClassificationComplex,
		RecommendedTier: llm.TierAdvanced,
		Factors: []types.ComplexityFactor{
			{Name: "ai_processing", Weight: 2, Contribution: 2},
			{Name: "high_volume", Weight: 1, Contribution: 0},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "COMPLEXITY ANALYSIS")
	assert.Contains(t, output, "complex")
	assert.Contains(t, output, "ai_processing")
	assert.NotContains(t, output, "high_volume")
}

func TestPrintAnalysis_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintAnalysis(nil)
	assert.Empty(t, buf.String())
}

func TestPrintAttempts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAttempts([]types.GenerationAttempt{
		{Tier: llm.TierAdvanced, Provider: "gemini", Outcome: types.OutcomeTimeout, DurationMs: 30000},
		{Tier: llm.TierStandard, Provider: "anthropic", Outcome: types.OutcomeSuccess, DurationMs: 4100, CostUSD: 0.0123},
	})
	output := buf.String()

	assert.Contains(t, output, "GENERATION ATTEMPTS")
	assert.Contains(t, output, "advanced/gemini timeout")
	assert.Contains(t, output, "Total cost: $0.0123")
}

func TestPrintValidation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintValidation(&types.ValidationResult{
		Valid:          false,
		RepairsApplied: []types.RepairRecord{{Code: "missing_retry_policy", Description: "added default retry policy"}},
		Errors:         []types.ValidationIssue{{Code: "literal_secret", NodeID: "fetch"}},
	})
	output := buf.String()

	assert.Contains(t, output, "Valid: false")
	assert.Contains(t, output, "added default retry policy")
	assert.Contains(t, output, "[fetch] literal_secret")
}

func TestPrintWorkflow(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintWorkflow(&types.WorkflowDraft{
		Name:        "Sync",
		Nodes:       []types.Node{{ID: "a", Type: "webhook", Name: "Start"}, {ID: "b", Type: "transform", Name: "Shape"}},
		Connections: []types.Connection{{From: "a", To: "b"}},
		Metadata:    types.WorkflowMetadata{GenerationPath: types.PathModel, ModelUsed: "gemini-2.5-flash"},
	})
	output := buf.String()

	assert.Contains(t, output, "model (gemini-2.5-flash)")
	assert.Contains(t, output, "a → b")
}

func TestPrintBudget(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBudget(cost.BudgetState{DailySpendUSD: 1.5, DailyLimitUSD: 10, Attempts: 3})
	output := buf.String()

	assert.Contains(t, output, "$1.5000")
	assert.Contains(t, output, "$10.00")
	assert.Contains(t, output, "Attempts: 3")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	p.printBox("T", long)
	assert.Contains(t, buf.String(), "...")
}
