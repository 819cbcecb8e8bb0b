package complexity

import (
	"regexp"
	"sort"
	"strings"
)

// Factor names, in evaluation order.
const (
	FactorStepCount     = "step_count"
	FactorIntegrations  = "integrations"
	FactorAIProcessing  = "ai_processing"
	FactorRegulated     = "regulated_industry"
	FactorHighVolume    = "high_volume"
	FactorConditional   = "conditional_logic"
	FactorMultiPlatform = "multi_platform_sync"
)

var aiKeywords = []string{
	"ai", "ml", "machine learning", "llm", "gpt", "openai", "chatgpt", "claude", "gemini",
	"classify", "classification", "classifier", "sentiment", "summarize", "summarization",
	"natural language", "nlp", "extract entities", "entity extraction", "ocr", "predict",
	"prediction", "embedding", "embeddings", "artificial intelligence",
}

var regulatedKeywords = []string{
	"finance", "financial", "bank", "banking", "fintech", "insurance", "investment",
	"accounting", "health", "healthcare", "medical", "hospital", "clinic", "patient",
	"pharma", "pharmaceutical", "hipaa", "legal", "law", "law firm", "compliance", "gdpr",
}

var conditionalKeywords = []string{
	"if", "else", "otherwise", "unless", "depending on", "based on", "in case",
	"route", "routing", "branch", "branching", "approve", "approval", "reject", "condition",
	"conditional", "threshold",
}

var multiPlatformKeywords = []string{
	"sync", "synchronize", "synchronise", "synchronization", "two-way", "bidirectional",
	"bi-directional", "in parallel", "parallel", "simultaneously", "mirror", "replicate",
	"across platforms", "across systems", "multiple platforms", "multiple systems",
}

// integrationAliases maps free-text vendor mentions to a canonical integration name.
var integrationAliases = map[string]string{
	"gmail":           "gmail",
	"google mail":     "gmail",
	"outlook":         "outlook",
	"sheets":          "sheets",
	"google sheets":   "sheets",
	"spreadsheet":     "sheets",
	"excel":           "excel",
	"airtable":        "airtable",
	"openai":          "openai",
	"chatgpt":         "openai",
	"gpt":             "openai",
	"anthropic":       "anthropic",
	"slack":           "slack",
	"teams":           "teams",
	"microsoft teams": "teams",
	"discord":         "discord",
	"salesforce":      "salesforce",
	"hubspot":         "hubspot",
	"pipedrive":       "pipedrive",
	"stripe":          "stripe",
	"quickbooks":      "quickbooks",
	"xero":            "xero",
	"shopify":         "shopify",
	"notion":          "notion",
	"trello":          "trello",
	"asana":           "asana",
	"jira":            "jira",
	"github":          "github",
	"zendesk":         "zendesk",
	"intercom":        "intercom",
	"mailchimp":       "mailchimp",
	"twilio":          "twilio",
	"dropbox":         "dropbox",
	"google drive":    "gdrive",
	"gdrive":          "gdrive",
	"postgres":        "postgres",
	"postgresql":      "postgres",
	"mysql":           "mysql",
	"mongodb":         "mongodb",
	"s3":              "s3",
	"calendly":        "calendly",
	"docusign":        "docusign",
}

// keywordMatcher matches any phrase of a table on word boundaries, case-insensitively.
type keywordMatcher struct {
	re *regexp.Regexp
}

func newKeywordMatcher(words []string) keywordMatcher {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return keywordMatcher{re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

// find returns the first matching phrase, lower-cased, or "".
func (m keywordMatcher) find(text string) string {
	return strings.ToLower(m.re.FindString(text))
}

var (
	aiMatcher            = newKeywordMatcher(aiKeywords)
	regulatedMatcher     = newKeywordMatcher(regulatedKeywords)
	conditionalMatcher   = newKeywordMatcher(conditionalKeywords)
	multiPlatformMatcher = newKeywordMatcher(multiPlatformKeywords)
	integrationMatcher   = newKeywordMatcher(aliasKeys())
)

func aliasKeys() []string {
	keys := make([]string, 0, len(integrationAliases))
	for k := range integrationAliases {
		keys = append(keys, k)
	}
	// Longest first so "google sheets" wins over "sheets" in the alternation.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// joiner matches the text between two platform names that receive the same
// data, as in "Sheets and Airtable" or "Slack, Teams".
var joiner = regexp.MustCompile(`(?i)^\s*(?:,\s*and|,|and|&|\+|plus|as well as)\s*$`)

// fanOut reports two distinct platforms named side by side as joint targets
// of one action. Platform counts alone are scored by the integrations factor.
func fanOut(text string) (string, string, bool) {
	locs := integrationMatcher.re.FindAllStringIndex(text, -1)
	for i := 1; i < len(locs); i++ {
		prev, cur := locs[i-1], locs[i]
		if !joiner.MatchString(text[prev[1]:cur[0]]) {
			continue
		}
		a := canonicalIntegration(text[prev[0]:prev[1]])
		b := canonicalIntegration(text[cur[0]:cur[1]])
		if a != b {
			return a, b, true
		}
	}
	return "", "", false
}

// canonicalIntegration normalizes a declared integration name.
func canonicalIntegration(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if c, ok := integrationAliases[n]; ok {
		return c
	}
	return n
}
