package assembler

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/catalog"
	"github.com/jonathan/workflow-generator/internal/types"
)

func simple() *types.ComplexityAnalysis {
	return &types.ComplexityAnalysis{Classification: types.ClassificationSimple}
}

func complexAnalysis() *types.ComplexityAnalysis {
	return &types.ComplexityAnalysis{Classification: types.ClassificationComplex}
}

func TestDetectPattern(t *testing.T) {
	tests := []struct {
		name        string
		description string
		opps        []types.AutomationOpportunity
		want        string
	}{
		{"email wins first", "reply to customer emails and sync to the CRM", nil, PatternEmail},
		{"data sync", "keep the CRM and the warehouse database in step", nil, PatternDataSync},
		{"ai", "use AI to triage tickets", nil, PatternAI},
		{"documents", "extract totals from PDF receipts", nil, PatternDocuments},
		{"api", "fetch data from REST API and transform it", nil, PatternAPI},
		{"general", "tidy up the shared drive", nil, PatternGeneral},
		{
			name:        "opportunity text counts",
			description: "weekly chore",
			opps:        []types.AutomationOpportunity{{Title: "Post summary", Integrations: []string{"sheets"}}},
			want:        PatternDataSync,
		},
		{"substring does not match", "the detailed fetcher", nil, PatternGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPattern(tt.description, tt.opps))
		})
	}
}

func TestResolvePattern_Hint(t *testing.T) {
	job := &types.Job{ProcessDescription: "reply to emails", PatternHint: PatternDocuments}
	assert.Equal(t, PatternDocuments, ResolvePattern(job))

	job.PatternHint = "not-a-pattern"
	assert.Equal(t, PatternEmail, ResolvePattern(job))
	assert.Equal(t, PatternGeneral, ResolvePattern(nil))
}

func TestScalingTable(t *testing.T) {
	assert.Equal(t, Scale{Items: 4, CharsPerItem: 600}, ScalingTable[types.ClassificationSimple])
	assert.Equal(t, Scale{Items: 8, CharsPerItem: 1200}, ScalingTable[types.ClassificationComplex])
}

func TestAssemble_SimpleUsesRankedTopFour(t *testing.T) {
	a := New(catalog.NewStaticCatalog(), 2, nil)
	job := &types.Job{ProcessDescription: "fetch data from REST API and transform it"}

	p, err := a.Assemble(context.Background(), simple(), job)
	require.NoError(t, err)

	assert.Equal(t, PatternAPI, p.Pattern)
	assert.False(t, p.Degraded)
	require.Len(t, p.Items, 4)
	rule, _ := Rule(PatternAPI)
	for i, item := range p.Items {
		assert.Equal(t, rule.Docs[i], item.NodeType, "rank order preserved")
		assert.LessOrEqual(t, len([]rune(item.Text)), 600)
	}
}

func TestAssemble_ComplexTruncatesToBudget(t *testing.T) {
	long := strings.Repeat("é", 5000)
	var entries []catalog.Entry
	rule, _ := Rule(PatternAI)
	for _, id := range rule.Docs {
		entries = append(entries, catalog.Entry{NodeType: id, Title: id, Documentation: long})
	}
	a := New(catalog.NewStaticCatalog(entries...), 3, nil)

	p, err := a.Assemble(context.Background(), complexAnalysis(), &types.Job{ProcessDescription: "classify leads with AI"})
	require.NoError(t, err)
	require.Len(t, p.Items, 8)
	for _, item := range p.Items {
		assert.Equal(t, 1200, len([]rune(item.Text)))
		assert.True(t, strings.HasSuffix(item.Text, "..."))
	}
	assert.Equal(t, 8*1200, p.TotalChars())
}

func TestAssemble_SkipsMissingDocs(t *testing.T) {
	a := New(catalog.NewStaticCatalog(
		catalog.Entry{NodeType: types.NodeWebhook, Documentation: "w"},
		catalog.Entry{NodeType: types.NodeTransform, Documentation: "t"},
	), 4, nil)

	p, err := a.Assemble(context.Background(), simple(), &types.Job{ProcessDescription: "call the API"})
	require.NoError(t, err)
	require.Len(t, p.Items, 2)
	assert.Equal(t, types.NodeWebhook, p.Items[0].NodeType)
	assert.Equal(t, types.NodeTransform, p.Items[1].NodeType)
}

type flakyCatalog struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyCatalog) Lookup(_ context.Context, nodeType string) (*catalog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if nodeType == types.NodeHTTPRequest {
		return nil, catalog.ErrUnavailable
	}
	return &catalog.Entry{NodeType: nodeType, Documentation: "doc"}, nil
}

func TestAssemble_FailsOpenWhenCatalogUnavailable(t *testing.T) {
	a := New(&flakyCatalog{}, 1, nil)

	p, err := a.Assemble(context.Background(), simple(), &types.Job{ProcessDescription: "call the API"})
	require.NoError(t, err)
	assert.True(t, p.Degraded)
	assert.Empty(t, p.Items)
	assert.Equal(t, PatternAPI, p.Pattern)
}

func TestAssemble_NilCatalog(t *testing.T) {
	p, err := New(nil, 0, nil).Assemble(context.Background(), simple(), &types.Job{ProcessDescription: "x"})
	require.NoError(t, err)
	assert.True(t, p.Degraded)
}

func TestAssemble_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(catalog.NewStaticCatalog(), 2, nil).Assemble(ctx, simple(), &types.Job{ProcessDescription: "call the API"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "ééé...", Truncate("éééééééé", 6))
}
