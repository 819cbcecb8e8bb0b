package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// statusOverloaded is Anthropic's "overloaded" status code.
const statusOverloaded = 529

// AnthropicProvider implements Provider against the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider. The SDK's own retries
// are disabled; the invoker moves to the next chain entry instead.
func NewAnthropicProvider(config ProviderConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimRight(config.BaseURL, "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base+"/"))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...)}, nil
}

// Name returns ProviderAnthropic
func (p *AnthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

// Generate performs one Messages API call and classifies the outcome.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) Result {
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(0.1),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return classifyAnthropicErr(ctx, err)
	}

	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return ProviderError{Code: "empty_response", StatusCode: http.StatusOK, Err: errors.New("no text blocks in response")}
	}

	return Success{
		Text:             strings.Join(texts, "\n"),
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
}

// classifyAnthropicErr maps SDK errors onto the Result union.
func classifyAnthropicErr(ctx context.Context, err error) Result {
	if r := classifyContextErr(ctx, err); r != nil {
		return r
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return ProviderError{Code: "transport", Err: err}
	}

	var retryAfter time.Duration
	if apiErr.Response != nil {
		retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}
	errType, message := anthropicErrorBody(apiErr.RawJSON())

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests,
		apiErr.StatusCode == statusOverloaded,
		errType == "rate_limit_error",
		errType == "overloaded_error":
		return RateLimited{RetryAfter: retryAfter}
	case apiErr.StatusCode == http.StatusGatewayTimeout, apiErr.StatusCode == http.StatusRequestTimeout:
		return Timeout{}
	}

	code := "http_error"
	if errType != "" {
		code = errType
	}
	if message == "" {
		message = err.Error()
	}
	return ProviderError{Code: code, StatusCode: apiErr.StatusCode, Err: errors.New(message)}
}

// anthropicErrorBody reads {"error": {"type", "message"}} from an error response.
func anthropicErrorBody(raw string) (string, string) {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if raw == "" || json.Unmarshal([]byte(raw), &body) != nil {
		return "", ""
	}
	return body.Error.Type, body.Error.Message
}

// Close is a no-op; the SDK client holds no dedicated resources.
func (p *AnthropicProvider) Close() error {
	return nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}
