// Package pipeline orchestrates one generation run end to end: analysis,
// the blueprint or model path, validation, and repair.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/workflow-generator/internal/assembler"
	"github.com/jonathan/workflow-generator/internal/blueprint"
	"github.com/jonathan/workflow-generator/internal/complexity"
	"github.com/jonathan/workflow-generator/internal/invoker"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/prompts"
	"github.com/jonathan/workflow-generator/internal/repair"
	"github.com/jonathan/workflow-generator/internal/routing"
	"github.com/jonathan/workflow-generator/internal/types"
	"github.com/jonathan/workflow-generator/internal/validation"
)

// ProgressEvent represents a progress update during a generation run
type ProgressEvent struct {
	JobID    string `json:"job_id,omitempty"`
	Stage    string `json:"stage"`
	Category string `json:"category"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Components are the collaborators a Coordinator drives.
type Components struct {
	Analyzer   *complexity.Analyzer
	Assembler  *assembler.Assembler
	Blueprints *blueprint.Generator
	Router     *routing.Router
	Prompts    *prompts.Builder
	Invoker    *invoker.Invoker
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Coordinator runs jobs. It holds no per-job state and is safe for
// concurrent use.
type Coordinator struct {
	c   Components
	now func() time.Time
}

// New creates a Coordinator.
func New(c Components) *Coordinator {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Blueprints == nil {
		c.Blueprints = blueprint.NewGenerator()
	}
	return &Coordinator{c: c, now: time.Now}
}

// run is the state of one generation run.
type run struct {
	job            *types.Job
	result         *types.GenerationResult
	logger         *slog.Logger
	onProgress     ProgressCallback
	triedBlueprint bool
}

func (r *run) emit(stage, message string, content any) {
	if r.onProgress == nil {
		return
	}
	def, _ := LookupStage(stage)
	r.onProgress(ProgressEvent{
		JobID:    r.job.ID,
		Stage:    stage,
		Category: def.Category,
		Progress: def.Progress,
		Message:  message,
		Content:  content,
	})
}

// Generate runs one job to completion. It always returns a result; a run
// that did not produce a valid workflow carries a Failure with a reason code.
func (c *Coordinator) Generate(ctx context.Context, job *types.Job, onProgress ProgressCallback) *types.GenerationResult {
	start := c.now()
	r := &run{
		job:        job,
		result:     &types.GenerationResult{},
		logger:     c.c.Logger.With("job_id", job.ID),
		onProgress: onProgress,
	}

	c.execute(ctx, r)

	elapsed := c.now().Sub(start)
	c.c.Metrics.ObserveResult(r.result, elapsed)
	if f := r.result.Failure; f != nil {
		r.logger.Warn("generation failed", "reason", f.Reason, "message", f.Message, "elapsed", elapsed)
		r.emit(StageFailed, f.Message, f)
	} else {
		r.logger.Info("generation completed",
			"path", r.result.Workflow.Metadata.GenerationPath,
			"nodes", len(r.result.Workflow.Nodes),
			"cost_usd", r.result.TotalCost(),
			"elapsed", elapsed)
		r.emit(StageComplete, "Workflow ready", r.result.Workflow)
	}
	return r.result
}

func (c *Coordinator) execute(ctx context.Context, r *run) {
	r.emit(StageAnalyze, "Analyzing process complexity", nil)
	analysis := c.c.Analyzer.Analyze(r.job)
	r.result.Analysis = analysis
	r.logger.Info("complexity analyzed",
		"score", analysis.Score,
		"classification", analysis.Classification,
		"tier", analysis.RecommendedTier)

	if !analysis.IsComplex() {
		r.emit(StageBlueprint, "Matching against blueprints", nil)
		r.triedBlueprint = true
		if draft, ok := c.c.Blueprints.Generate(r.job); ok {
			r.logger.Info("blueprint matched", "blueprint", draft.Metadata.Blueprint)
			c.finalize(r, draft)
			return
		}
		r.logger.Info("no blueprint matched, using model path")
	}

	if err := ctx.Err(); err != nil {
		c.cancelled(r, err)
		return
	}

	r.emit(StageContext, "Gathering node documentation", nil)
	payload, err := c.c.Assembler.Assemble(ctx, analysis, r.job)
	if err != nil {
		c.cancelled(r, err)
		return
	}

	r.emit(StageRoute, "Choosing models", nil)
	chain := c.c.Router.Chain(analysis.RecommendedTier)
	if len(chain) == 0 {
		c.fallback(r, types.ReasonChainExhausted, "no model is configured for routing")
		return
	}

	r.emit(StagePrompt, "Building prompts", nil)
	calls := c.buildCalls(r, analysis, payload, chain)
	if len(calls) == 0 {
		c.fallback(r, types.ReasonPromptOverBudget, "prompt cannot fit any tier's token ceiling")
		return
	}

	r.emit(StageInvoke, fmt.Sprintf("Generating with %s", calls[0].Entry), nil)
	resp, attempts, err := c.c.Invoker.Invoke(ctx, r.job.ID, calls)
	r.result.Attempts = append(r.result.Attempts, attempts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.cancelled(r, ctxErr)
			return
		}
		reason := types.ReasonChainExhausted
		var exhausted *invoker.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.OnlyBudget() {
			reason = types.ReasonBudgetExceeded
		}
		c.fallback(r, reason, err.Error())
		return
	}

	r.emit(StageParse, "Parsing model output", nil)
	draft, err := validation.ParseDraft(resp.Text)
	if err != nil {
		r.logger.Warn("model output unparseable", "model", resp.Entry.Model, "error", err)
		c.fallback(r, types.ReasonUnparseable, err.Error())
		return
	}
	draft.Metadata = types.WorkflowMetadata{
		GenerationPath:        types.PathModel,
		ModelUsed:             resp.Entry.Model,
		Provider:              string(resp.Entry.Provider),
		Pattern:               payload.Pattern,
		DocumentationDegraded: payload.Degraded,
	}
	c.finalize(r, draft)
}

// buildCalls pairs each chain entry with a prompt for its tier. Entries whose
// tier cannot fit its ceiling are dropped.
func (c *Coordinator) buildCalls(r *run, analysis *types.ComplexityAnalysis, payload *assembler.Payload, chain []routing.Entry) []invoker.Call {
	built := make(map[llm.ModelTier]*prompts.Prompt)
	failed := make(map[llm.ModelTier]bool)

	calls := make([]invoker.Call, 0, len(chain))
	for _, entry := range chain {
		if failed[entry.Tier] {
			continue
		}
		p, ok := built[entry.Tier]
		if !ok {
			var err error
			p, err = c.c.Prompts.Build(r.job, analysis, payload, entry.Tier)
			if err != nil {
				r.logger.Warn("prompt over budget, dropping tier", "tier", entry.Tier, "error", err)
				failed[entry.Tier] = true
				continue
			}
			if len(p.Truncations) > 0 {
				r.logger.Info("prompt truncated", "tier", entry.Tier, "tokens", p.Tokens, "steps", p.Truncations)
			}
			built[entry.Tier] = p
		}
		calls = append(calls, invoker.Call{Entry: entry, Prompt: p})
	}
	return calls
}

// fallback tries the blueprint path once after the model path gave up, and
// fails the run with reason if that is unavailable.
func (c *Coordinator) fallback(r *run, reason types.FailureReason, message string) {
	if !r.triedBlueprint {
		r.triedBlueprint = true
		r.emit(StageBlueprint, "Falling back to blueprints", nil)
		if draft, ok := c.c.Blueprints.Generate(r.job); ok {
			r.logger.Info("fell back to blueprint", "reason", reason, "blueprint", draft.Metadata.Blueprint)
			draft.Metadata.FallbackReason = string(reason)
			c.finalize(r, draft)
			return
		}
	}
	r.result.Failure = &types.Failure{Reason: reason, Message: message}
}

func (c *Coordinator) cancelled(r *run, err error) {
	r.result.Failure = &types.Failure{Reason: types.ReasonCancelled, Message: err.Error()}
}

// finalize stamps run-level metadata, then validates and repairs the draft.
func (c *Coordinator) finalize(r *run, draft *types.WorkflowDraft) {
	r.emit(StageValidate, "Validating workflow", nil)

	draft.Metadata.ComplexityScore = r.result.Analysis.Score
	draft.Metadata.CostUSD = r.result.TotalCost()
	if draft.Metadata.Pattern == "" {
		draft.Metadata.Pattern = assembler.ResolvePattern(r.job)
	}

	validationResult := repair.New(fallbackName(r.job)).Run(draft)
	r.result.Workflow = draft
	r.result.Validation = validationResult

	if len(validationResult.RepairsApplied) > 0 {
		r.logger.Info("repairs applied", "count", len(validationResult.RepairsApplied))
	}
	if !validationResult.Valid {
		r.result.Failure = &types.Failure{
			Reason:  types.ReasonValidationFailed,
			Message: fmt.Sprintf("workflow has %d unrepairable validation errors", len(validationResult.Errors)),
			Errors:  validationResult.Errors,
		}
	}
}

func fallbackName(job *types.Job) string {
	if len(job.AutomationOpportunities) > 0 && job.AutomationOpportunities[0].Title != "" {
		return job.AutomationOpportunities[0].Title
	}
	return assembler.Truncate(job.ProcessDescription, 60)
}
