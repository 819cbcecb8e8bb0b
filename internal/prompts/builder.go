package prompts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/workflow-generator/internal/assembler"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/types"
)

const (
	generationFile = "generation.json"
	keySystem      = "system"
	keyTemplate    = "generate-workflow"

	// opportunityTrimChars is the first-stage cap on opportunity descriptions.
	opportunityTrimChars = 160
)

// ErrOverBudget means the prompt could not be brought under the tier ceiling.
var ErrOverBudget = errors.New("prompt exceeds token ceiling after truncation")

// Limits are the per-tier input token ceilings.
type Limits struct {
	StandardMaxTokens   int `yaml:"standard_max_tokens"`
	AdvancedMaxTokens   int `yaml:"advanced_max_tokens"`
	MinDescriptionChars int `yaml:"min_description_chars"`
}

// DefaultLimits returns the baseline ceilings.
func DefaultLimits() Limits {
	return Limits{
		StandardMaxTokens:   3500,
		AdvancedMaxTokens:   4500,
		MinDescriptionChars: 400,
	}
}

// Ceiling returns the input token ceiling for a tier.
func (l Limits) Ceiling(tier llm.ModelTier) int {
	if tier == llm.TierAdvanced {
		return l.AdvancedMaxTokens
	}
	return l.StandardMaxTokens
}

// Prompt is a token-bounded prompt ready for a provider.
type Prompt struct {
	System      string        `json:"system"`
	User        string        `json:"user"`
	Tier        llm.ModelTier `json:"tier"`
	Tokens      int           `json:"tokens"`
	Ceiling     int           `json:"ceiling"`
	Truncations []string      `json:"truncations,omitempty"`
}

// OverBudgetError carries the size that could not be reduced.
type OverBudgetError struct {
	Tier    llm.ModelTier
	Tokens  int
	Ceiling int
}

func (e *OverBudgetError) Error() string {
	return fmt.Sprintf("prompt for %s tier is %d tokens, ceiling %d", e.Tier, e.Tokens, e.Ceiling)
}

func (e *OverBudgetError) Unwrap() error {
	return ErrOverBudget
}

// Builder renders prompts and enforces the per-tier ceiling.
type Builder struct {
	limits Limits
}

// NewBuilder creates a Builder. Zero limits take their defaults.
func NewBuilder(limits Limits) *Builder {
	d := DefaultLimits()
	if limits.StandardMaxTokens <= 0 {
		limits.StandardMaxTokens = d.StandardMaxTokens
	}
	if limits.AdvancedMaxTokens <= 0 {
		limits.AdvancedMaxTokens = d.AdvancedMaxTokens
	}
	if limits.MinDescriptionChars <= 0 {
		limits.MinDescriptionChars = d.MinDescriptionChars
	}
	return &Builder{limits: limits}
}

// Limits returns the effective limits.
func (b *Builder) Limits() Limits {
	return b.limits
}

// parts is the mutable content of a prompt while it is being fitted.
type parts struct {
	description   string
	context       string
	opportunities []types.AutomationOpportunity
	docs          []assembler.DocItem
	example       string
	pattern       string
	analysis      *types.ComplexityAnalysis
}

// Build renders a prompt for the tier. Truncation order: documentation items
// from the lowest rank, the pattern example, opportunity descriptions, then the
// process description down to the guaranteed minimum.
func (b *Builder) Build(job *types.Job, analysis *types.ComplexityAnalysis, payload *assembler.Payload, tier llm.ModelTier) (*Prompt, error) {
	system, err := Get(generationFile, keySystem)
	if err != nil {
		return nil, err
	}
	template, err := Get(generationFile, keyTemplate)
	if err != nil {
		return nil, err
	}

	p := parts{
		description:   job.ProcessDescription,
		context:       formatContext(job.BusinessContext),
		opportunities: append([]types.AutomationOpportunity(nil), job.AutomationOpportunities...),
		analysis:      analysis,
		pattern:       assembler.PatternGeneral,
	}
	if payload != nil {
		p.pattern = payload.Pattern
		p.docs = append([]assembler.DocItem(nil), payload.Items...)
	}
	if ex, err := Get(generationFile, exampleKey(p.pattern)); err == nil {
		p.example = ex
	}

	ceiling := b.limits.Ceiling(tier)
	prompt := &Prompt{System: system, Tier: tier, Ceiling: ceiling}
	render := func() int {
		prompt.User = Format(template, p.data())
		prompt.Tokens = llm.EstimateTokens(prompt.System) + llm.EstimateTokens(prompt.User)
		return prompt.Tokens
	}

	for render() > ceiling && len(p.docs) > 0 {
		dropped := p.docs[len(p.docs)-1]
		p.docs = p.docs[:len(p.docs)-1]
		prompt.Truncations = append(prompt.Truncations, "dropped documentation: "+dropped.NodeType)
	}
	if prompt.Tokens > ceiling && p.example != "" {
		p.example = ""
		prompt.Truncations = append(prompt.Truncations, "dropped pattern example")
		render()
	}
	if prompt.Tokens > ceiling && trimOpportunities(p.opportunities, opportunityTrimChars) {
		prompt.Truncations = append(prompt.Truncations, "shortened opportunity descriptions")
		render()
	}
	if prompt.Tokens > ceiling && trimOpportunities(p.opportunities, 0) {
		prompt.Truncations = append(prompt.Truncations, "removed opportunity descriptions")
		render()
	}
	for prompt.Tokens > ceiling {
		descRunes := len([]rune(p.description))
		excessChars := (prompt.Tokens-ceiling)*4 + 16
		target := max(b.limits.MinDescriptionChars, descRunes-excessChars)
		if target >= descRunes {
			break
		}
		p.description = assembler.Truncate(p.description, target)
		prompt.Truncations = append(prompt.Truncations, fmt.Sprintf("shortened process description to %d chars", target))
		render()
	}
	if prompt.Tokens > ceiling {
		return nil, &OverBudgetError{Tier: tier, Tokens: prompt.Tokens, Ceiling: ceiling}
	}
	return prompt, nil
}

func (p *parts) data() map[string]string {
	classification, score := string(types.ClassificationSimple), 0
	if p.analysis != nil {
		classification, score = string(p.analysis.Classification), p.analysis.Score
	}
	return map[string]string{
		"Description":     p.description,
		"BusinessContext": p.context,
		"Opportunities":   formatOpportunities(p.opportunities),
		"Documentation":   formatDocs(p.docs),
		"Example":         orNone(p.example),
		"Pattern":         p.pattern,
		"Classification":  classification,
		"Score":           fmt.Sprintf("%d", score),
	}
}

// trimOpportunities caps every description at limit runes and reports whether
// anything changed.
func trimOpportunities(opps []types.AutomationOpportunity, limit int) bool {
	changed := false
	for i := range opps {
		if len([]rune(opps[i].Description)) <= limit {
			continue
		}
		if limit == 0 {
			opps[i].Description = ""
		} else {
			opps[i].Description = assembler.Truncate(opps[i].Description, limit)
		}
		changed = true
	}
	return changed
}

func exampleKey(pattern string) string {
	return "example-" + pattern
}

func formatContext(bc *types.BusinessContext) string {
	if bc == nil {
		return "(none provided)"
	}
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, v))
		}
	}
	add("Industry", bc.Industry)
	add("Department", bc.Department)
	add("Volume", bc.Volume)
	add("SLA", bc.SLANotes)
	if len(lines) == 0 {
		return "(none provided)"
	}
	return strings.Join(lines, "\n")
}

func formatOpportunities(opps []types.AutomationOpportunity) string {
	if len(opps) == 0 {
		return "(none identified)"
	}
	var sb strings.Builder
	for i, o := range opps {
		fmt.Fprintf(&sb, "%d. %s", i+1, o.Title)
		if o.StepType != "" {
			fmt.Fprintf(&sb, " [%s]", o.StepType)
		}
		if len(o.Integrations) > 0 {
			fmt.Fprintf(&sb, " (integrations: %s)", strings.Join(o.Integrations, ", "))
		}
		if o.Description != "" {
			fmt.Fprintf(&sb, "\n   %s", o.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatDocs(docs []assembler.DocItem) string {
	if len(docs) == 0 {
		return "(no documentation available; use well-known node types)"
	}
	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "### %s (%s)\n%s\n\n", d.Title, d.NodeType, d.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orNone(s string) string {
	if s == "" {
		return "(omitted)"
	}
	return s
}
