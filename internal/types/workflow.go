package types

// GenerationPath records which path produced a workflow.
type GenerationPath string

const (
	PathBlueprint GenerationPath = "blueprint"
	PathModel     GenerationPath = "model"
)

// WorkflowDraft is a directed graph of typed nodes. It is mutated only by
// validation repairs and is treated as frozen once returned.
type WorkflowDraft struct {
	Name        string           `json:"name"`
	Nodes       []Node           `json:"nodes"`
	Connections []Connection     `json:"connections"`
	Metadata    WorkflowMetadata `json:"metadata"`
}

// Node is a single typed step of a workflow.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// Connection is a directed edge between two node ids.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WorkflowMetadata records how a workflow was produced.
type WorkflowMetadata struct {
	GenerationPath        GenerationPath `json:"generationPath"`
	ModelUsed             string         `json:"modelUsed,omitempty"`
	Provider              string         `json:"provider,omitempty"`
	ComplexityScore       int            `json:"complexityScore"`
	CostUSD               float64        `json:"costUsd"`
	Pattern               string         `json:"pattern,omitempty"`
	Blueprint             string         `json:"blueprint,omitempty"`
	DocumentationDegraded bool           `json:"documentationDegraded,omitempty"`
	FallbackReason        string         `json:"fallbackReason,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (w *WorkflowDraft) NodeByID(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the draft so repairs never alias caller data.
func (w *WorkflowDraft) Clone() *WorkflowDraft {
	if w == nil {
		return nil
	}
	out := &WorkflowDraft{
		Name:        w.Name,
		Nodes:       make([]Node, len(w.Nodes)),
		Connections: append([]Connection(nil), w.Connections...),
		Metadata:    w.Metadata,
	}
	for i, n := range w.Nodes {
		out.Nodes[i] = Node{ID: n.ID, Type: n.Type, Name: n.Name, Parameters: cloneMap(n.Parameters)}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// IsTriggerType reports whether a node type starts a workflow.
func IsTriggerType(nodeType string) bool {
	switch nodeType {
	case NodeWebhook, NodeSchedule, NodeManualTrigger, NodeEmailTrigger:
		return true
	}
	return false
}

// Node types emitted by blueprints and referenced by the catalog.
const (
	NodeWebhook       = "webhook"
	NodeSchedule      = "schedule"
	NodeManualTrigger = "manualTrigger"
	NodeEmailTrigger  = "emailTrigger"
	NodeHTTPRequest   = "httpRequest"
	NodeTransform     = "transform"
	NodeSendEmail     = "sendEmail"
	NodeSpreadsheet   = "googleSheets"
	NodeIf            = "if"
	NodeSwitch        = "switch"
	NodeMerge         = "merge"
	NodeAITextClassif = "aiTextClassifier"
	NodeOpenAI        = "openAi"
	NodeAirtable      = "airtable"
	NodeSlack         = "slack"
	NodeGmail         = "gmail"
	NodeExtractPDF    = "extractFromFile"
	NodeCode          = "code"
)
