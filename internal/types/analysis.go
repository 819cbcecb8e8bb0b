package types

import "github.com/jonathan/workflow-generator/internal/llm"

// Classification is the complexity class of a job.
type Classification string

const (
	ClassificationSimple  Classification = "simple"
	ClassificationComplex Classification = "complex"
)

// ComplexityFactor records one evaluated factor and what it contributed to the score.
type ComplexityFactor struct {
	Name         string `json:"name"`
	Weight       int    `json:"weight"`
	Contribution int    `json:"contribution"`
	Detail       string `json:"detail,omitempty"`
}

// ComplexityAnalysis is derived from a Job and lives only for one generation run.
type ComplexityAnalysis struct {
	Score           int                `json:"score"`
	Classification  Classification     `json:"classification"`
	Factors         []ComplexityFactor `json:"factors"`
	RecommendedTier llm.ModelTier      `json:"recommended_tier"`
	Rationale       string             `json:"rationale"`
}

// IsComplex reports whether the analysis classified the job as complex.
func (a *ComplexityAnalysis) IsComplex() bool {
	return a != nil && a.Classification == ClassificationComplex
}
