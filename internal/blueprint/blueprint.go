// Package blueprint recognizes a small fixed set of canonical request shapes
// and emits complete workflows for them without calling a model.
package blueprint

import (
	"strings"

	"github.com/jonathan/workflow-generator/internal/types"
)

// Normalized step kinds.
const (
	StepHTTP        = "http"
	StepTransform   = "transform"
	StepEmail       = "email"
	StepSpreadsheet = "spreadsheet"

	TriggerWebhook  = "webhook"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// stepAliases maps declared step types to normalized kinds.
var stepAliases = map[string]string{
	"http":         StepHTTP,
	"http_request": StepHTTP,
	"httprequest":  StepHTTP,
	"api":          StepHTTP,
	"api_call":     StepHTTP,
	"rest":         StepHTTP,
	"fetch":        StepHTTP,

	"transform":      StepTransform,
	"data_transform": StepTransform,
	"map":            StepTransform,
	"set":            StepTransform,
	"format":         StepTransform,

	"email":      StepEmail,
	"send_email": StepEmail,
	"sendemail":  StepEmail,
	"notify":     StepEmail,
	"mail":       StepEmail,

	"spreadsheet":   StepSpreadsheet,
	"sheets":        StepSpreadsheet,
	"google_sheets": StepSpreadsheet,
	"googlesheets":  StepSpreadsheet,
	"append_row":    StepSpreadsheet,

	"webhook":  TriggerWebhook,
	"schedule": TriggerSchedule,
	"cron":     TriggerSchedule,
	"manual":   TriggerManual,
}

// NormalizeStepType returns the normalized kind for a declared step type, or "".
func NormalizeStepType(stepType string) string {
	key := strings.ToLower(strings.TrimSpace(stepType))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	return stepAliases[key]
}

func isTrigger(kind string) bool {
	return kind == TriggerWebhook || kind == TriggerSchedule || kind == TriggerManual
}

// Blueprint is one canonical shape and the template it expands to.
type Blueprint struct {
	Name  string
	Title string
	Steps []string
}

// Blueprints is the fixed set of recognized shapes.
var Blueprints = []Blueprint{
	{Name: "api_fetch_transform", Title: "Fetch and transform", Steps: []string{StepHTTP, StepTransform}},
	{Name: "api_fetch_notify", Title: "Fetch and notify", Steps: []string{StepHTTP, StepEmail}},
	{Name: "api_report", Title: "Fetch, transform and report", Steps: []string{StepHTTP, StepTransform, StepEmail}},
	{Name: "capture_to_sheet", Title: "Capture to spreadsheet", Steps: []string{StepSpreadsheet}},
}

// Match is the outcome of structural matching.
type Match struct {
	Blueprint Blueprint
	Trigger   string
	// Steps holds the opportunities backing each functional step, in order.
	Steps []types.AutomationOpportunity
}

// MatchJob matches the job's declared step types against the blueprint set.
// An optional leading trigger step selects the trigger; the rest must equal a
// blueprint's step list exactly.
func MatchJob(job *types.Job) (*Match, bool) {
	if job == nil || len(job.AutomationOpportunities) == 0 {
		return nil, false
	}

	opps := job.AutomationOpportunities
	trigger := TriggerWebhook
	if kind := NormalizeStepType(opps[0].StepType); isTrigger(kind) {
		trigger = kind
		opps = opps[1:]
	}

	kinds := make([]string, len(opps))
	for i, o := range opps {
		kind := NormalizeStepType(o.StepType)
		if kind == "" || isTrigger(kind) {
			return nil, false
		}
		kinds[i] = kind
	}

	for _, bp := range Blueprints {
		if equalSteps(bp.Steps, kinds) {
			return &Match{Blueprint: bp, Trigger: trigger, Steps: opps}, true
		}
	}
	return nil, false
}

func equalSteps(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
