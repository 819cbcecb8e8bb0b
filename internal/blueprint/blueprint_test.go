package blueprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/types"
)

func fetchTransformJob() *types.Job {
	return &types.Job{
		ID:                 "job-a",
		ProcessDescription: "fetch data from REST API and transform it",
		AutomationOpportunities: []types.AutomationOpportunity{
			{Title: "Fetch orders", StepType: "http"},
			{Title: "Normalize orders", StepType: "transform"},
		},
	}
}

func functionalNodes(d *types.WorkflowDraft) []types.Node {
	var out []types.Node
	for _, n := range d.Nodes {
		if !types.IsTriggerType(n.Type) {
			out = append(out, n)
		}
	}
	return out
}

func TestGenerate_FetchTransform(t *testing.T) {
	draft, ok := NewGenerator().Generate(fetchTransformJob())
	require.True(t, ok)

	require.Len(t, draft.Nodes, 3)
	assert.Equal(t, types.NodeWebhook, draft.Nodes[0].Type)
	assert.Len(t, functionalNodes(draft), 2)
	assert.Equal(t, types.NodeHTTPRequest, draft.Nodes[1].Type)
	assert.Equal(t, types.NodeTransform, draft.Nodes[2].Type)
	assert.Equal(t, "Fetch orders", draft.Nodes[1].Name)

	assert.Equal(t, []types.Connection{{From: "trigger", To: "fetch"}, {From: "fetch", To: "transform"}}, draft.Connections)
	assert.Equal(t, types.PathBlueprint, draft.Metadata.GenerationPath)
	assert.Equal(t, "api_fetch_transform", draft.Metadata.Blueprint)
	assert.Equal(t, true, draft.Nodes[1].Parameters["retryOnFail"])
}

func TestGenerate_ByteIdentical(t *testing.T) {
	g := NewGenerator()
	first, ok := g.Generate(fetchTransformJob())
	require.True(t, ok)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		d, ok := g.Generate(fetchTransformJob())
		require.True(t, ok)
		got, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestGenerate_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		opps []types.AutomationOpportunity
	}{
		{"no opportunities", nil},
		{"undeclared step type", []types.AutomationOpportunity{{Title: "fetch"}, {Title: "transform"}}},
		{"unknown step type", []types.AutomationOpportunity{{StepType: "http"}, {StepType: "ai_classify"}}},
		{"wrong order", []types.AutomationOpportunity{{StepType: "transform"}, {StepType: "http"}}},
		{"too many steps", []types.AutomationOpportunity{{StepType: "http"}, {StepType: "transform"}, {StepType: "transform"}}},
		{"trigger only", []types.AutomationOpportunity{{StepType: "webhook"}}},
		{"trigger mid-sequence", []types.AutomationOpportunity{{StepType: "http"}, {StepType: "schedule"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := NewGenerator().Generate(&types.Job{ProcessDescription: "x", AutomationOpportunities: tt.opps})
			assert.False(t, ok)
			assert.Nil(t, d)
		})
	}
	_, ok := NewGenerator().Generate(nil)
	assert.False(t, ok)
}

func TestGenerate_DeclaredTrigger(t *testing.T) {
	job := &types.Job{
		ProcessDescription: "Every hour pull the status page and email the on-call team.",
		AutomationOpportunities: []types.AutomationOpportunity{
			{Title: "Hourly", StepType: "Cron"},
			{Title: "Pull status", StepType: "API Call"},
			{Title: "Email on-call", StepType: "send-email"},
		},
	}
	d, ok := NewGenerator().Generate(job)
	require.True(t, ok)
	assert.Equal(t, "api_fetch_notify", d.Metadata.Blueprint)
	assert.Equal(t, types.NodeSchedule, d.Nodes[0].Type)
	assert.Equal(t, types.NodeSendEmail, d.Nodes[2].Type)
	assert.Equal(t, "Fetch and notify: Every hour pull the status page and email the on-call team", d.Name)
}

func TestGenerate_AllBlueprintsAreConnectedChains(t *testing.T) {
	for _, bp := range Blueprints {
		t.Run(bp.Name, func(t *testing.T) {
			job := &types.Job{ProcessDescription: bp.Title}
			for _, s := range bp.Steps {
				job.AutomationOpportunities = append(job.AutomationOpportunities, types.AutomationOpportunity{StepType: s})
			}
			d, ok := NewGenerator().Generate(job)
			require.True(t, ok)
			assert.Equal(t, bp.Name, d.Metadata.Blueprint)
			assert.Len(t, d.Nodes, len(bp.Steps)+1)
			assert.Len(t, d.Connections, len(bp.Steps))

			ids := map[string]bool{}
			for _, n := range d.Nodes {
				assert.False(t, ids[n.ID], "duplicate id %s", n.ID)
				ids[n.ID] = true
				assert.NotEmpty(t, n.Name)
			}
			for _, c := range d.Connections {
				assert.True(t, ids[c.From])
				assert.True(t, ids[c.To])
			}
		})
	}
}

func TestNormalizeStepType(t *testing.T) {
	assert.Equal(t, StepHTTP, NormalizeStepType(" HTTP-Request "))
	assert.Equal(t, StepSpreadsheet, NormalizeStepType("Google Sheets"))
	assert.Equal(t, TriggerManual, NormalizeStepType("manual"))
	assert.Equal(t, "", NormalizeStepType("teleport"))
}
