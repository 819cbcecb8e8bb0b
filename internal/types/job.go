// Package types defines the data model shared by the workflow generation pipeline.
package types

import "time"

// Job is one submitted request to generate an automation workflow.
// A Job is never mutated after submission.
type Job struct {
	ID                      string                  `json:"id"`
	ProcessDescription      string                  `json:"process_description" validate:"required,min=10,max=20000"`
	BusinessContext         *BusinessContext        `json:"business_context,omitempty"`
	AutomationOpportunities []AutomationOpportunity `json:"automation_opportunities" validate:"max=50,dive"`
	PatternHint             string                  `json:"pattern_hint,omitempty"`
	SubmittedAt             time.Time               `json:"submitted_at"`
}

// BusinessContext describes the organization the process belongs to.
// Every field is optional.
type BusinessContext struct {
	Industry   string `json:"industry,omitempty" validate:"max=200"`
	Department string `json:"department,omitempty" validate:"max=200"`
	Volume     string `json:"volume,omitempty" validate:"max=200"`
	SLANotes   string `json:"sla_notes,omitempty" validate:"max=2000"`
}

// AutomationOpportunity is one step of the process identified as automatable.
// StepType is the declared structural type of the step (e.g. "http", "transform").
type AutomationOpportunity struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description,omitempty" validate:"max=4000"`
	StepType     string   `json:"step_type,omitempty" validate:"max=50"`
	Integrations []string `json:"integrations,omitempty" validate:"max=20,dive,max=100"`
}

// Industry returns the business context industry, or "" when no context was given.
func (j *Job) Industry() string {
	if j == nil || j.BusinessContext == nil {
		return ""
	}
	return j.BusinessContext.Industry
}

// Volume returns the business context volume, or "" when no context was given.
func (j *Job) Volume() string {
	if j == nil || j.BusinessContext == nil {
		return ""
	}
	return j.BusinessContext.Volume
}
