package types

import (
	"time"

	"github.com/jonathan/workflow-generator/internal/llm"
)

// AttemptOutcome is the result class of one provider call.
type AttemptOutcome string

const (
	OutcomeSuccess     AttemptOutcome = "success"
	OutcomeTimeout     AttemptOutcome = "timeout"
	OutcomeError       AttemptOutcome = "error"
	OutcomeRateLimited AttemptOutcome = "rate_limited"
	OutcomeRejected    AttemptOutcome = "rejected"
)

// GenerationAttempt is an append-only record of one Generation Invoker call.
type GenerationAttempt struct {
	JobID            string         `json:"job_id,omitempty"`
	Tier             llm.ModelTier  `json:"tier"`
	Provider         string         `json:"provider"`
	Model            string         `json:"model"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	CostUSD          float64        `json:"cost_usd"`
	DurationMs       int64          `json:"duration_ms"`
	Outcome          AttemptOutcome `json:"outcome"`
	Error            string         `json:"error,omitempty"`
	At               time.Time      `json:"at"`
}

// FailureReason is a machine-readable reason a job failed.
type FailureReason string

const (
	ReasonChainExhausted   FailureReason = "chain_exhausted"
	ReasonBudgetExceeded   FailureReason = "budget_exceeded"
	ReasonPromptOverBudget FailureReason = "prompt_over_budget"
	ReasonValidationFailed FailureReason = "validation_failed"
	ReasonUnparseable      FailureReason = "unparseable_output"
	ReasonCancelled        FailureReason = "cancelled"
	ReasonInternal         FailureReason = "internal_error"
)

// Failure describes why a generation run did not produce a valid workflow.
type Failure struct {
	Reason  FailureReason     `json:"reason"`
	Message string            `json:"message"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// GenerationResult is everything one generation run produced.
// Workflow may be set alongside a Failure when validation could not be repaired.
type GenerationResult struct {
	Workflow   *WorkflowDraft      `json:"workflow,omitempty"`
	Validation *ValidationResult   `json:"validation,omitempty"`
	Analysis   *ComplexityAnalysis `json:"analysis,omitempty"`
	Attempts   []GenerationAttempt `json:"attempts,omitempty"`
	Failure    *Failure            `json:"failure,omitempty"`
}

// Succeeded reports whether the run produced a valid workflow.
func (r *GenerationResult) Succeeded() bool {
	return r != nil && r.Failure == nil && r.Workflow != nil && r.Validation != nil && r.Validation.Valid
}

// TotalCost sums the cost of all attempts.
func (r *GenerationResult) TotalCost() float64 {
	var total float64
	for _, a := range r.Attempts {
		total += a.CostUSD
	}
	return total
}

// JobStatus is the lifecycle state of a submitted job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// JobRecord is what the status interface returns for a job.
type JobRecord struct {
	ID          string            `json:"id"`
	Status      JobStatus         `json:"status"`
	Progress    int               `json:"progress"`
	Stage       string            `json:"stage,omitempty"`
	Job         *Job              `json:"job,omitempty"`
	Result      *GenerationResult `json:"result,omitempty"`
	Error       *Failure          `json:"error,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
