package blueprint

import (
	"fmt"
	"strings"

	"github.com/jonathan/workflow-generator/internal/types"
)

// Generator emits workflows from blueprints. Output is a pure function of
// the job: no clock, no randomness, no I/O.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a workflow for the job, or false when no blueprint matches.
func (g *Generator) Generate(job *types.Job) (*types.WorkflowDraft, bool) {
	m, ok := MatchJob(job)
	if !ok {
		return nil, false
	}

	draft := &types.WorkflowDraft{
		Name:        workflowName(m.Blueprint, job.ProcessDescription),
		Nodes:       make([]types.Node, 0, len(m.Steps)+1),
		Connections: make([]types.Connection, 0, len(m.Steps)),
		Metadata: types.WorkflowMetadata{
			GenerationPath: types.PathBlueprint,
			Blueprint:      m.Blueprint.Name,
		},
	}

	draft.Nodes = append(draft.Nodes, triggerNode(m.Trigger))
	prev := draft.Nodes[0].ID
	counts := make(map[string]int)
	for _, opp := range m.Steps {
		kind := NormalizeStepType(opp.StepType)
		counts[kind]++
		node := stepNode(kind, counts[kind], opp)
		draft.Nodes = append(draft.Nodes, node)
		draft.Connections = append(draft.Connections, types.Connection{From: prev, To: node.ID})
		prev = node.ID
	}
	return draft, true
}

func workflowName(bp Blueprint, description string) string {
	line := strings.TrimSpace(description)
	if i := strings.IndexAny(line, ".\n"); i > 0 {
		line = line[:i]
	}
	r := []rune(line)
	if len(r) > 60 {
		line = strings.TrimSpace(string(r[:60]))
	}
	if line == "" {
		return bp.Title
	}
	return fmt.Sprintf("%s: %s", bp.Title, line)
}

func triggerNode(kind string) types.Node {
	switch kind {
	case TriggerSchedule:
		return types.Node{
			ID:   "trigger",
			Type: types.NodeSchedule,
			Name: "Schedule Trigger",
			Parameters: map[string]any{
				"rule": map[string]any{
					"interval": []any{map[string]any{"field": "hours", "value": 1}},
				},
			},
		}
	case TriggerManual:
		return types.Node{ID: "trigger", Type: types.NodeManualTrigger, Name: "Manual Trigger", Parameters: map[string]any{}}
	default:
		return types.Node{
			ID:   "trigger",
			Type: types.NodeWebhook,
			Name: "Webhook",
			Parameters: map[string]any{
				"path":         "incoming",
				"httpMethod":   "POST",
				"responseMode": "onReceived",
			},
		}
	}
}

// RetryPolicy is the retry configuration blueprints attach to HTTP nodes.
func RetryPolicy() map[string]any {
	return map[string]any{
		"retryOnFail":      true,
		"maxTries":         3,
		"waitBetweenTries": 1000,
	}
}

func stepNode(kind string, n int, opp types.AutomationOpportunity) types.Node {
	id := kind
	if n > 1 {
		id = fmt.Sprintf("%s_%d", kind, n)
	}
	name := strings.TrimSpace(opp.Title)

	switch kind {
	case StepHTTP:
		params := map[string]any{
			"method":         "GET",
			"url":            "={{ $vars.sourceUrl }}",
			"authentication": "predefinedCredentialType",
			"options":        map[string]any{"timeout": 10000},
		}
		for k, v := range RetryPolicy() {
			params[k] = v
		}
		return types.Node{ID: "fetch" + suffix(n), Type: types.NodeHTTPRequest, Name: orDefault(name, "Fetch Data"), Parameters: params}
	case StepTransform:
		return types.Node{
			ID:   "transform" + suffix(n),
			Type: types.NodeTransform,
			Name: orDefault(name, "Transform Data"),
			Parameters: map[string]any{
				"mode":               "manual",
				"includeOtherFields": true,
				"assignments":        []any{map[string]any{"name": "data", "value": "={{ $json }}", "type": "object"}},
			},
		}
	case StepEmail:
		return types.Node{
			ID:   "notify" + suffix(n),
			Type: types.NodeSendEmail,
			Name: orDefault(name, "Send Email"),
			Parameters: map[string]any{
				"fromEmail": "={{ $vars.senderEmail }}",
				"toEmail":   "={{ $vars.recipientEmail }}",
				"subject":   orDefault(name, "Automation update"),
				"text":      "={{ JSON.stringify($json, null, 2) }}",
			},
		}
	case StepSpreadsheet:
		return types.Node{
			ID:   "append" + suffix(n),
			Type: types.NodeSpreadsheet,
			Name: orDefault(name, "Append Row"),
			Parameters: map[string]any{
				"operation":  "append",
				"documentId": "={{ $vars.spreadsheetId }}",
				"sheetName":  "Sheet1",
				"columns":    map[string]any{"mappingMode": "autoMapInputData"},
			},
		}
	}
	return types.Node{ID: id, Type: kind, Name: name, Parameters: map[string]any{}}
}

func suffix(n int) string {
	if n <= 1 {
		return ""
	}
	return fmt.Sprintf("_%d", n)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
