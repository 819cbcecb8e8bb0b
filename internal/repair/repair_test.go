package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/types"
	"github.com/jonathan/workflow-generator/internal/validation"
)

func draft() *types.WorkflowDraft {
	return &types.WorkflowDraft{
		Name: "Lead enrichment",
		Nodes: []types.Node{
			{ID: "trigger", Type: types.NodeWebhook, Name: "Webhook", Parameters: map[string]any{}},
			{ID: "fetch", Type: types.NodeHTTPRequest, Name: "Lookup", Parameters: map[string]any{"url": "={{ $vars.url }}", "retryOnFail": true}},
			{ID: "notify", Type: types.NodeSlack, Name: "Notify", Parameters: map[string]any{}},
		},
		Connections: []types.Connection{{From: "trigger", To: "fetch"}, {From: "fetch", To: "notify"}},
	}
}

func repairCodes(recs []types.RepairRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Code
	}
	return out
}

func TestRun_ValidDraftUntouched(t *testing.T) {
	d := draft()
	before := d.Clone()

	res := Run(d)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.RepairsApplied)
	assert.NotNil(t, res.Errors)
	assert.Equal(t, before, d)
}

func TestRun_InjectsRetryPolicy(t *testing.T) {
	d := draft()
	delete(d.Nodes[1].Parameters, "retryOnFail")

	res := Run(d)
	require.True(t, res.Valid)
	assert.Equal(t, []string{validation.CodeMissingRetryPolicy}, repairCodes(res.RepairsApplied))
	assert.Equal(t, true, d.Nodes[1].Parameters["retryOnFail"])
	assert.Equal(t, 3, d.Nodes[1].Parameters["maxTries"])
	assert.Equal(t, "={{ $vars.url }}", d.Nodes[1].Parameters["url"])
}

func TestRun_NilParametersGetRetryPolicy(t *testing.T) {
	d := draft()
	d.Nodes[1].Parameters = nil

	res := Run(d)
	require.True(t, res.Valid)
	assert.Equal(t, true, d.Nodes[1].Parameters["retryOnFail"])
}

func TestRun_NamesWorkflowAndNodes(t *testing.T) {
	d := draft()
	d.Name = ""
	d.Nodes[1].Name = ""

	res := New("Enrich leads").Run(d)
	require.True(t, res.Valid)
	assert.Equal(t, []string{validation.CodeMissingWorkflowName, validation.CodeMissingNodeName}, repairCodes(res.RepairsApplied))
	assert.Equal(t, "Enrich leads", d.Name)
	assert.Equal(t, "Http Request", d.Nodes[1].Name)
}

func TestRun_DefaultName(t *testing.T) {
	d := draft()
	d.Name = ""
	res := Run(d)
	require.True(t, res.Valid)
	assert.Equal(t, DefaultWorkflowName, d.Name)
}

func TestRun_RenamesDuplicateIDs(t *testing.T) {
	d := draft()
	d.Nodes = append(d.Nodes,
		types.Node{ID: "fetch_2", Type: types.NodeCode, Name: "Existing"},
		types.Node{ID: "fetch", Type: types.NodeCode, Name: "Dup"},
	)
	d.Connections = append(d.Connections,
		types.Connection{From: "notify", To: "fetch_2"},
		types.Connection{From: "fetch_2", To: "fetch"},
	)

	res := Run(d)
	require.True(t, res.Valid, "errors: %v", res.Errors)
	assert.Equal(t, []string{validation.CodeDuplicateNodeID}, repairCodes(res.RepairsApplied))
	assert.Equal(t, "fetch_3", d.Nodes[4].ID)
	assert.Contains(t, res.RepairsApplied[0].Description, `"fetch" to "fetch_3"`)
	assert.Equal(t, types.Connection{From: "trigger", To: "fetch"}, d.Connections[0])
	assert.Equal(t, types.Connection{From: "fetch_2", To: "fetch_3"}, d.Connections[3])
}

func TestRun_DuplicateChainIsRewired(t *testing.T) {
	d := &types.WorkflowDraft{
		Name: "Two steps",
		Nodes: []types.Node{
			{ID: "trigger", Type: types.NodeWebhook, Name: "Webhook"},
			{ID: "step", Type: types.NodeCode, Name: "A"},
			{ID: "step", Type: types.NodeCode, Name: "B"},
		},
		Connections: []types.Connection{{From: "trigger", To: "step"}, {From: "step", To: "step"}},
	}

	res := Run(d)
	require.True(t, res.Valid, "errors: %v", res.Errors)
	assert.Equal(t, []string{validation.CodeDuplicateNodeID}, repairCodes(res.RepairsApplied))
	assert.Equal(t, "step", d.Nodes[1].ID)
	assert.Equal(t, "step_2", d.Nodes[2].ID)
	assert.Equal(t, []types.Connection{
		{From: "trigger", To: "step"},
		{From: "step", To: "step_2"},
	}, d.Connections)
}

func TestRun_DuplicateFanOutEntersEachCopy(t *testing.T) {
	d := &types.WorkflowDraft{
		Name: "Fan out",
		Nodes: []types.Node{
			{ID: "trigger", Type: types.NodeWebhook, Name: "Webhook"},
			{ID: "notify", Type: types.NodeSlack, Name: "Sales"},
			{ID: "notify", Type: types.NodeSlack, Name: "Support"},
			{ID: "notify", Type: types.NodeSlack, Name: "Ops"},
		},
		Connections: []types.Connection{
			{From: "trigger", To: "notify"},
			{From: "trigger", To: "notify"},
			{From: "trigger", To: "notify"},
		},
	}

	res := Run(d)
	require.True(t, res.Valid, "errors: %v", res.Errors)
	assert.Len(t, res.RepairsApplied, 2)
	assert.Equal(t, []string{"notify", "notify_2", "notify_3"},
		[]string{d.Connections[0].To, d.Connections[1].To, d.Connections[2].To})
}

func TestRun_DropsDanglingConnections(t *testing.T) {
	d := draft()
	d.Connections = append(d.Connections, types.Connection{From: "notify", To: "archive"})

	res := Run(d)
	require.True(t, res.Valid)
	assert.Len(t, d.Connections, 2)
	assert.Equal(t, []string{validation.CodeDanglingConnection}, repairCodes(res.RepairsApplied))
}

func TestRun_RepairCanExposeUnrepairableIssue(t *testing.T) {
	d := draft()
	// notify is only reachable through a connection to a missing node.
	d.Connections = []types.Connection{{From: "trigger", To: "fetch"}, {From: "ghost", To: "notify"}}

	res := Run(d)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{validation.CodeDanglingConnection}, repairCodes(res.RepairsApplied))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, validation.CodeOrphanNode, res.Errors[0].Code)
	assert.Equal(t, "notify", res.Errors[0].NodeID)
}

func TestRun_LiteralSecretIsTerminal(t *testing.T) {
	d := draft()
	d.Nodes[1].Parameters["headers"] = map[string]any{"x-api-key": "sk-live1234567890abcdefghijklmnop"}
	delete(d.Nodes[1].Parameters, "retryOnFail")

	res := Run(d)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{validation.CodeMissingRetryPolicy}, repairCodes(res.RepairsApplied))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, validation.CodeLiteralSecret, res.Errors[0].Code)
	assert.Equal(t, "fetch", res.Errors[0].NodeID)
	assert.Contains(t, res.Errors[0].Message, `"fetch"`)
}

func TestRun_NilDraft(t *testing.T) {
	res := Run(nil)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, validation.CodeEmptyWorkflow, res.Errors[0].Code)
}

func TestCodesOrder(t *testing.T) {
	assert.Equal(t, []string{
		validation.CodeMissingWorkflowName,
		validation.CodeMissingNodeName,
		validation.CodeDuplicateNodeID,
		validation.CodeDanglingConnection,
		validation.CodeMissingRetryPolicy,
	}, New("").Codes())
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"httpRequest":                 "Http Request",
		"send_email":                  "Send Email",
		"n8n-nodes-base.googleSheets": "Google Sheets",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, humanize(in), in)
	}
}
