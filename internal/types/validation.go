package types

// ValidationIssue is one itemized validation failure.
type ValidationIssue struct {
	Code    string `json:"code"`
	NodeID  string `json:"nodeId,omitempty"`
	Message string `json:"message"`
}

// RepairRecord describes one automatic repair that was applied.
type RepairRecord struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ValidationResult is the terminal artifact of the validation stage.
type ValidationResult struct {
	Valid          bool              `json:"valid"`
	Errors         []ValidationIssue `json:"errors"`
	RepairsApplied []RepairRecord    `json:"repairsApplied"`
}
