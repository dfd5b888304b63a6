package llm

import (
	"context"
	"errors"
	"time"
)

// Client abstracts hosted model providers. Generate sends a single user
// prompt and returns the raw text of the first candidate, which callers
// expect to contain JSON.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

var (
	// ErrSafetyBlocked is returned when the provider refuses the prompt or
	// withholds the completion on safety grounds.
	ErrSafetyBlocked = errors.New("llm: blocked by safety settings")
	// ErrEmptyResponse is returned when the provider answers without text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

type timeoutClient struct {
	Client
	timeout time.Duration
}

// WithTimeout bounds every Generate call on c. A non-positive timeout returns c unchanged.
func WithTimeout(c Client, timeout time.Duration) Client {
	if c == nil || timeout <= 0 {
		return c
	}
	return &timeoutClient{Client: c, timeout: timeout}
}

func (t *timeoutClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Client.Generate(ctx, prompt)
}
