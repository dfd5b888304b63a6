package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"rmn-analyst/internal/llm"
	"rmn-analyst/internal/shared/telemetry"
)

const jsonMIMEType = "application/json"

// Options tunes a Gemini client.
type Options struct {
	// ResponseSchema constrains output to the analysis shape.
	ResponseSchema bool
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Client implements llm.Client on the Gemini API.
type Client struct {
	models *genai.Models
	model  string
	config *genai.GenerateContentConfig
}

// NewClient constructs a Gemini client for model.
func NewClient(ctx context.Context, apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{ResponseMIMEType: jsonMIMEType}
	if opts.ResponseSchema {
		cfg.ResponseSchema = AnalysisSchema()
	}
	return &Client{models: client.Models, model: model, config: cfg}, nil
}

func (c *Client) Model() string { return c.model }

// Generate sends prompt as a single user turn and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		if strings.Contains(strings.ToUpper(err.Error()), "SAFETY") {
			return "", fmt.Errorf("%w: %v", llm.ErrSafetyBlocked, err)
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	fields := map[string]any{
		"provider":    "gemini",
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
	}
	telemetry.Info("llm.response", fields)

	return responseText(resp)
}

// responseText extracts the first candidate's text, mapping safety stops to llm.ErrSafetyBlocked.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" &&
		resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked (%s)", llm.ErrSafetyBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			return "", fmt.Errorf("%w: finish reason %s", llm.ErrSafetyBlocked, resp.Candidates[0].FinishReason)
		}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

var _ llm.Client = (*Client)(nil)
