package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/workflow-generator/internal/types"
)

// Issue codes, in the order Check reports them.
const (
	CodeMissingWorkflowName = "missing_workflow_name"
	CodeEmptyWorkflow       = "empty_workflow"
	CodeMissingNodeID       = "missing_node_id"
	CodeMissingNodeType     = "missing_node_type"
	CodeMissingNodeName     = "missing_node_name"
	CodeDuplicateNodeID     = "duplicate_node_id"
	CodeDanglingConnection  = "dangling_connection"
	CodeLiteralSecret       = "literal_secret"
	CodeMissingRetryPolicy  = "missing_retry_policy"
	CodeOrphanNode          = "orphan_node"
)

// Check runs schema, security, and integrity checks in that order and
// returns every issue found. It never mutates the draft.
func Check(draft *types.WorkflowDraft) []types.ValidationIssue {
	if draft == nil {
		return []types.ValidationIssue{{Code: CodeEmptyWorkflow, Message: "workflow is missing"}}
	}
	var issues []types.ValidationIssue
	issues = append(issues, checkSchema(draft)...)
	issues = append(issues, checkSecurity(draft)...)
	issues = append(issues, checkIntegrity(draft)...)
	return issues
}

func checkSchema(d *types.WorkflowDraft) []types.ValidationIssue {
	var issues []types.ValidationIssue
	if strings.TrimSpace(d.Name) == "" {
		issues = append(issues, types.ValidationIssue{Code: CodeMissingWorkflowName, Message: "workflow has no name"})
	}
	if len(d.Nodes) == 0 {
		issues = append(issues, types.ValidationIssue{Code: CodeEmptyWorkflow, Message: "workflow has no nodes"})
		return issues
	}

	seen := make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			issues = append(issues, types.ValidationIssue{
				Code:    CodeMissingNodeID,
				Message: fmt.Sprintf("node at position %d has no id", i),
			})
			continue
		}
		if strings.TrimSpace(n.Type) == "" {
			issues = append(issues, types.ValidationIssue{Code: CodeMissingNodeType, NodeID: n.ID, Message: fmt.Sprintf("node %q has no type", n.ID)})
		}
		if strings.TrimSpace(n.Name) == "" {
			issues = append(issues, types.ValidationIssue{Code: CodeMissingNodeName, NodeID: n.ID, Message: fmt.Sprintf("node %q has no name", n.ID)})
		}
		seen[n.ID]++
		if seen[n.ID] == 2 {
			issues = append(issues, types.ValidationIssue{Code: CodeDuplicateNodeID, NodeID: n.ID, Message: fmt.Sprintf("node id %q is used more than once", n.ID)})
		}
	}

	for _, c := range d.Connections {
		for _, end := range []string{c.From, c.To} {
			if _, ok := seen[end]; !ok {
				issues = append(issues, types.ValidationIssue{
					Code:    CodeDanglingConnection,
					NodeID:  end,
					Message: fmt.Sprintf("connection %s -> %s references unknown node %q", c.From, c.To, end),
				})
			}
		}
	}
	return issues
}

func checkSecurity(d *types.WorkflowDraft) []types.ValidationIssue {
	var issues []types.ValidationIssue
	for _, n := range d.Nodes {
		for _, f := range findSecrets(n.Parameters) {
			issues = append(issues, types.ValidationIssue{
				Code:    CodeLiteralSecret,
				NodeID:  n.ID,
				Message: fmt.Sprintf("node %q embeds a %s in parameter %q; use a credential reference", n.ID, f.Kind, f.Path),
			})
		}
	}
	for _, n := range d.Nodes {
		if IsHTTPNode(n.Type) && !HasRetryPolicy(n.Parameters) {
			issues = append(issues, types.ValidationIssue{
				Code:    CodeMissingRetryPolicy,
				NodeID:  n.ID,
				Message: fmt.Sprintf("HTTP node %q does not declare a retry policy", n.ID),
			})
		}
	}
	return issues
}

func checkIntegrity(d *types.WorkflowDraft) []types.ValidationIssue {
	if len(d.Nodes) == 1 && types.IsTriggerType(d.Nodes[0].Type) {
		return nil
	}
	referenced := make(map[string]bool, len(d.Connections)*2)
	for _, c := range d.Connections {
		referenced[c.From] = true
		referenced[c.To] = true
	}
	var issues []types.ValidationIssue
	for _, n := range d.Nodes {
		if n.ID == "" || referenced[n.ID] {
			continue
		}
		issues = append(issues, types.ValidationIssue{
			Code:    CodeOrphanNode,
			NodeID:  n.ID,
			Message: fmt.Sprintf("node %q is not connected to the workflow", n.ID),
		})
	}
	return issues
}

// IsHTTPNode reports whether a node type performs outbound HTTP calls.
// Namespaced types such as "n8n-nodes-base.httpRequest" are accepted.
func IsHTTPNode(nodeType string) bool {
	if i := strings.LastIndex(nodeType, "."); i >= 0 {
		nodeType = nodeType[i+1:]
	}
	return strings.EqualFold(nodeType, types.NodeHTTPRequest)
}

// HasRetryPolicy reports whether parameters enable retries.
func HasRetryPolicy(params map[string]any) bool {
	if v, ok := params["retryOnFail"].(bool); ok && v {
		return true
	}
	if rp, ok := params["retryPolicy"].(map[string]any); ok {
		if n, ok := rp["maxTries"].(float64); ok && n > 0 {
			return true
		}
		if n, ok := rp["maxTries"].(int); ok && n > 0 {
			return true
		}
	}
	return false
}
