package pipeline

import "fmt"

// Stage categories group stages for progress display.
const (
	CategoryAnalysis   = "analysis"
	CategoryContext    = "context"
	CategoryGeneration = "generation"
	CategoryValidation = "validation"
)

// Stage names, in pipeline order.
const (
	StageAnalyze   = "analyze"
	StageBlueprint = "blueprint"
	StageContext   = "assemble_context"
	StageRoute     = "route"
	StagePrompt    = "build_prompt"
	StageInvoke    = "invoke_model"
	StageParse     = "parse_output"
	StageValidate  = "validate"
	StageComplete  = "complete"
	StageFailed    = "failed"
)

// StageDefinition is the static metadata of one stage.
type StageDefinition struct {
	Name     string
	Category string
	// Progress is the percentage reported when the stage starts.
	Progress int
}

// StageRegistry holds every stage the coordinator can report.
var StageRegistry = map[string]StageDefinition{
	StageAnalyze:   {Name: StageAnalyze, Category: CategoryAnalysis, Progress: 5},
	StageBlueprint: {Name: StageBlueprint, Category: CategoryGeneration, Progress: 15},
	StageContext:   {Name: StageContext, Category: CategoryContext, Progress: 25},
	StageRoute:     {Name: StageRoute, Category: CategoryGeneration, Progress: 35},
	StagePrompt:    {Name: StagePrompt, Category: CategoryGeneration, Progress: 40},
	StageInvoke:    {Name: StageInvoke, Category: CategoryGeneration, Progress: 50},
	StageParse:     {Name: StageParse, Category: CategoryValidation, Progress: 80},
	StageValidate:  {Name: StageValidate, Category: CategoryValidation, Progress: 90},
	StageComplete:  {Name: StageComplete, Category: CategoryValidation, Progress: 100},
	StageFailed:    {Name: StageFailed, Category: CategoryValidation, Progress: 100},
}

// UnknownStageError is returned for a stage name not in the registry.
type UnknownStageError struct {
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage: %s", e.Stage)
}

// LookupStage returns the definition of a stage.
func LookupStage(name string) (StageDefinition, error) {
	def, ok := StageRegistry[name]
	if !ok {
		return StageDefinition{}, &UnknownStageError{Stage: name}
	}
	return def, nil
}
