package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type blockingClient struct{}

func (blockingClient) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingClient) Model() string { return "blocking" }

func TestWithTimeoutCancelsSlowCalls(t *testing.T) {
	c := WithTimeout(blockingClient{}, 10*time.Millisecond)
	_, err := c.Generate(context.Background(), "prompt")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if c.Model() != "blocking" {
		t.Fatalf("expected wrapped model name, got %q", c.Model())
	}
}

func TestWithTimeoutZeroIsPassthrough(t *testing.T) {
	inner := blockingClient{}
	if c := WithTimeout(inner, 0); c != Client(inner) {
		t.Fatalf("expected passthrough client")
	}
}
