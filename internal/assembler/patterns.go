// Package assembler selects a bounded slice of node documentation for a job,
// sized by its complexity classification.
package assembler

import (
	"regexp"
	"strings"

	"github.com/jonathan/workflow-generator/internal/types"
)

// Pattern names.
const (
	PatternEmail     = "email_automation"
	PatternDataSync  = "data_sync"
	PatternAI        = "ai_classification"
	PatternDocuments = "document_processing"
	PatternAPI       = "api_integration"
	PatternGeneral   = "general"
)

// PatternRule maps a pattern to its trigger keywords and its documentation
// node types ranked by relevance.
type PatternRule struct {
	Name     string
	Keywords []string
	Docs     []string

	re *regexp.Regexp
}

// Patterns is evaluated in order; the first rule with a keyword hit wins.
var Patterns = compile([]PatternRule{
	{
		Name:     PatternEmail,
		Keywords: []string{"email", "emails", "e-mail", "gmail", "outlook", "inbox", "mailbox", "newsletter", "reply", "imap", "smtp"},
		Docs: []string{
			types.NodeEmailTrigger, types.NodeGmail, types.NodeSendEmail, types.NodeIf,
			types.NodeTransform, types.NodeHTTPRequest, types.NodeCode, types.NodeSlack, types.NodeSchedule,
		},
	},
	{
		Name:     PatternDataSync,
		Keywords: []string{"sync", "synchronize", "synchronise", "synchronization", "spreadsheet", "sheets", "airtable", "crm", "database", "replicate", "mirror", "import", "export", "backup"},
		Docs: []string{
			types.NodeSpreadsheet, types.NodeAirtable, types.NodeHTTPRequest, types.NodeMerge,
			types.NodeTransform, types.NodeSchedule, types.NodeIf, types.NodeCode, types.NodeSlack,
		},
	},
	{
		Name:     PatternAI,
		Keywords: []string{"classify", "classification", "categorize", "categorise", "sentiment", "ai", "llm", "gpt", "openai", "triage", "summarize", "summarise"},
		Docs: []string{
			types.NodeAITextClassif, types.NodeOpenAI, types.NodeSwitch, types.NodeIf,
			types.NodeTransform, types.NodeWebhook, types.NodeCode, types.NodeSlack, types.NodeHTTPRequest,
		},
	},
	{
		Name:     PatternDocuments,
		Keywords: []string{"pdf", "pdfs", "document", "documents", "invoice", "invoices", "receipt", "receipts", "ocr", "contract", "contracts", "attachment", "attachments", "file", "files"},
		Docs: []string{
			types.NodeExtractPDF, types.NodeCode, types.NodeTransform, types.NodeOpenAI,
			types.NodeSpreadsheet, types.NodeWebhook, types.NodeSendEmail, types.NodeIf, types.NodeHTTPRequest,
		},
	},
	{
		Name:     PatternAPI,
		Keywords: []string{"api", "apis", "rest", "endpoint", "http", "webhook", "json", "fetch", "graphql"},
		Docs: []string{
			types.NodeWebhook, types.NodeHTTPRequest, types.NodeTransform, types.NodeCode,
			types.NodeIf, types.NodeSchedule, types.NodeMerge, types.NodeSlack, types.NodeSwitch,
		},
	},
	{
		Name: PatternGeneral,
		Docs: []string{
			types.NodeManualTrigger, types.NodeSchedule, types.NodeWebhook, types.NodeTransform,
			types.NodeCode, types.NodeIf, types.NodeHTTPRequest, types.NodeMerge, types.NodeSwitch,
		},
	},
})

func compile(rules []PatternRule) []PatternRule {
	for i := range rules {
		if len(rules[i].Keywords) == 0 {
			continue
		}
		quoted := make([]string, len(rules[i].Keywords))
		for j, k := range rules[i].Keywords {
			quoted[j] = regexp.QuoteMeta(k)
		}
		rules[i].re = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return rules
}

// Rule returns the rule for a pattern name.
func Rule(name string) (PatternRule, bool) {
	for _, r := range Patterns {
		if r.Name == name {
			return r, true
		}
	}
	return PatternRule{}, false
}

// DetectPattern returns the first pattern whose keywords appear in the
// description or opportunity list, defaulting to general.
func DetectPattern(description string, opportunities []types.AutomationOpportunity) string {
	var sb strings.Builder
	sb.WriteString(description)
	for _, o := range opportunities {
		sb.WriteString("\n")
		sb.WriteString(o.Title)
		sb.WriteString(" ")
		sb.WriteString(o.Description)
		sb.WriteString(" ")
		sb.WriteString(strings.Join(o.Integrations, " "))
	}
	text := sb.String()

	for _, r := range Patterns {
		if r.re != nil && r.re.MatchString(text) {
			return r.Name
		}
	}
	return PatternGeneral
}
