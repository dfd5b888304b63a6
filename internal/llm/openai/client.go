package openai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"rmn-analyst/internal/llm"
	"rmn-analyst/internal/shared/telemetry"
)

const finishReasonContentFilter = "content_filter"

// Client implements llm.Client using OpenAI Chat Completions in JSON mode.
type Client struct {
	client openai.Client
	model  string
}

// NewClient constructs a new OpenAI client. baseURL may point at any
// OpenAI-compatible endpoint.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("OPENAI_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *Client) Model() string { return c.model }

// Generate sends prompt as a single user message and returns the message content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if supportsTemperatureZero(c.model) {
		params.Temperature = openai.Float(0)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	telemetry.Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             c.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"finish_reason":     choice.FinishReason,
	})

	if choice.FinishReason == finishReasonContentFilter {
		return "", llm.ErrSafetyBlocked
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

// supportsTemperatureZero reports whether model accepts temperature=0.
// gpt-5 family models and anything listed in LLM_NO_TEMP0_MODELS reject it.
func supportsTemperatureZero(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if strings.HasPrefix(m, "gpt-5") {
		return false
	}
	for _, entry := range strings.Split(os.Getenv("LLM_NO_TEMP0_MODELS"), ",") {
		if strings.EqualFold(strings.TrimSpace(entry), m) && m != "" {
			return false
		}
	}
	return true
}

var _ llm.Client = (*Client)(nil)
