package validation

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/schemas"
	"github.com/jonathan/workflow-generator/internal/types"
)

// ParseDraft cleans raw model output and decodes it into a draft. Output
// that is not JSON, or whose shape does not match the workflow schema,
// returns a *ParseError. Missing names and ids are left for Check.
func ParseDraft(raw string) (*types.WorkflowDraft, error) {
	cleaned := strings.TrimSpace(llm.CleanJSONBlock(raw))
	if cleaned == "" {
		return nil, &ParseError{Message: "empty model output"}
	}
	if !json.Valid([]byte(cleaned)) {
		return nil, &ParseError{Message: "model output is not valid JSON"}
	}
	if err := schemas.ValidateWorkflow(cleaned); err != nil {
		return nil, &ParseError{Message: "model output does not match the workflow schema", Cause: err}
	}

	var draft types.WorkflowDraft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return nil, &ParseError{Message: "failed to decode workflow", Cause: err}
	}
	// Metadata is stamped by the pipeline, never taken from the model.
	draft.Metadata = types.WorkflowMetadata{}
	return &draft, nil
}
