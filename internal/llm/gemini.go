package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client *genai.Client
	config ProviderConfig
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, config ProviderConfig) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns ProviderGemini
func (p *GeminiProvider) Name() ProviderName {
	return ProviderGemini
}

// Generate performs one Gemini call and classifies the outcome
func (p *GeminiProvider) Generate(ctx context.Context, req Request) Result {
	if req.Model == "" {
		return ProviderError{Code: "no_model", Err: errors.New("no model specified")}
	}

	model := p.client.GenerativeModel(req.Model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return classifyGeminiErr(ctx, err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return ProviderError{Code: "empty_response", Err: err}
	}

	out := Success{Text: text}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if out.PromptTokens == 0 {
		out.PromptTokens = EstimateTokens(req.System) + EstimateTokens(req.Prompt)
	}
	if out.CompletionTokens == 0 {
		out.CompletionTokens = EstimateTokens(text)
	}
	return out
}

// Close releases resources held by the client
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func classifyGeminiErr(ctx context.Context, err error) Result {
	if r := classifyContextErr(ctx, err); r != nil {
		return r
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return RateLimited{}
		case apiErr.Code == http.StatusGatewayTimeout:
			return Timeout{}
		default:
			return ProviderError{Code: "api_error", StatusCode: apiErr.Code, Err: err}
		}
	}

	// gRPC transport surfaces status codes only in the message.
	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "ResourceExhausted") {
		return RateLimited{}
	}
	if strings.Contains(msg, "DEADLINE_EXCEEDED") || strings.Contains(msg, "DeadlineExceeded") {
		return Timeout{}
	}
	return ProviderError{Code: "transport", Err: err}
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
