package catalog

import (
	"context"

	"github.com/jonathan/workflow-generator/internal/types"
)

// StaticCatalog serves documentation from an in-memory table.
type StaticCatalog struct {
	entries map[string]Entry
}

// NewStaticCatalog returns a catalog over the given entries. With no entries
// it serves the built-in documentation set.
func NewStaticCatalog(entries ...Entry) *StaticCatalog {
	if len(entries) == 0 {
		entries = builtinEntries
	}
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.NodeType] = e
	}
	return &StaticCatalog{entries: m}
}

// Lookup returns the entry for nodeType or ErrNotFound.
func (c *StaticCatalog) Lookup(ctx context.Context, nodeType string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := c.entries[nodeType]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

var builtinEntries = []Entry{
	{types.NodeWebhook, "Webhook", "Starts the workflow when an HTTP request is received. Parameters: path (string), httpMethod (GET|POST), responseMode (onReceived|lastNode). Outputs the request body, headers and query as JSON."},
	{types.NodeSchedule, "Schedule Trigger", "Starts the workflow on a schedule. Parameters: rule.interval (list of {field: minutes|hours|days|weeks, value}). Use cronExpression for complex calendars."},
	{types.NodeManualTrigger, "Manual Trigger", "Starts the workflow when executed by hand. No parameters. Useful for testing and one-off runs."},
	{types.NodeEmailTrigger, "Email Trigger (IMAP)", "Starts the workflow when a new email arrives in a mailbox. Parameters: mailbox, postProcessAction (read|nothing), format (simple|resolved). Requires IMAP credentials referenced by name."},
	{types.NodeHTTPRequest, "HTTP Request", "Calls any REST API. Parameters: method, url, authentication (credential reference, never a literal token), sendBody, bodyParameters, options.timeout, retryOnFail (bool), maxTries (int), waitBetweenTries (ms). Returns the parsed response body."},
	{types.NodeTransform, "Set / Transform", "Reshapes items. Parameters: mode (manual|raw), assignments (list of {name, value, type}) where value may be an expression such as {{ $json.field }}. Use includeOtherFields to keep unmapped fields."},
	{types.NodeCode, "Code", "Runs JavaScript over all items or each item. Parameters: mode (runOnceForAllItems|runOnceForEachItem), jsCode. Return an array of {json} objects."},
	{types.NodeSendEmail, "Send Email", "Sends an email through SMTP. Parameters: fromEmail, toEmail, subject, text or html. Credentials are referenced by name."},
	{types.NodeGmail, "Gmail", "Reads, sends and labels Gmail messages. Parameters: resource (message|label|draft), operation (get|getAll|send|addLabels), filters.q for search. Uses OAuth2 credentials."},
	{types.NodeSpreadsheet, "Google Sheets", "Appends, updates or reads rows. Parameters: operation (append|appendOrUpdate|read), documentId, sheetName, columns.mappingMode (autoMapInputData|defineBelow), columns.value."},
	{types.NodeAirtable, "Airtable", "Creates, updates or searches records. Parameters: operation (create|update|search|upsert), base, table, columns. Uses a personal access token credential."},
	{types.NodeSlack, "Slack", "Posts messages to channels or users. Parameters: resource (message), operation (post), select (channel|user), channelId, text, blocks."},
	{types.NodeOpenAI, "OpenAI", "Sends prompts to OpenAI models. Parameters: resource (text|chat), modelId, messages (list of {role, content}), options.temperature, options.maxTokens. Output is in message.content."},
	{types.NodeAITextClassif, "Text Classifier", "Classifies text into one of several categories using a connected chat model. Parameters: inputText (expression), categories (list of {category, description}), options.fallback (discard|other). Emits one output per category."},
	{types.NodeIf, "If", "Routes items to true/false branches. Parameters: conditions (list of {leftValue, operator, rightValue}), combinator (and|or)."},
	{types.NodeSwitch, "Switch", "Routes items to one of many outputs. Parameters: mode (rules|expression), rules.values (list of conditions with outputKey)."},
	{types.NodeMerge, "Merge", "Combines data from two inputs. Parameters: mode (append|combine|chooseBranch), combineBy (matchingFields|position), fieldsToMatchString."},
	{types.NodeExtractPDF, "Extract From File", "Extracts text or structured data from binary files. Parameters: operation (pdf|csv|xlsx|json), binaryPropertyName, options.joinPages."},
}
