package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/genai"

	"rmn-analyst/internal/llm"
)

func textResponse(text string, finish genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
			FinishReason: finish,
		}},
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{name: "stop", resp: textResponse(` {"a":1} `, genai.FinishReasonStop), want: `{"a":1}`},
		{name: "nil", resp: nil, wantErr: llm.ErrEmptyResponse},
		{name: "empty", resp: textResponse("", genai.FinishReasonStop), wantErr: llm.ErrEmptyResponse},
		{name: "safety finish", resp: textResponse("", genai.FinishReasonSafety), wantErr: llm.ErrSafetyBlocked},
		{name: "prohibited", resp: textResponse("", genai.FinishReasonProhibitedContent), wantErr: llm.ErrSafetyBlocked},
		{name: "blocklist", resp: textResponse("", genai.FinishReasonBlocklist), wantErr: llm.ErrSafetyBlocked},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			},
			wantErr: llm.ErrSafetyBlocked,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalysisSchemaRequiresAllSections(t *testing.T) {
	schema := AnalysisSchema()
	if len(schema.Required) != 8 {
		t.Fatalf("expected 8 required keys, got %d", len(schema.Required))
	}
	for _, key := range schema.Required {
		if _, ok := schema.Properties[key]; !ok {
			t.Fatalf("required key %q has no property", key)
		}
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	if strings.Contains(string(encoded), "ROAS") {
		t.Fatalf("schema must not introduce KPI vocabulary")
	}
}

func TestGenerateAgainstFakeEndpoint(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"executiveSummary\":\"ok\"}"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), "test-key", "gemini-2.5-flash", Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Generate(context.Background(), "analyze")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"executiveSummary":"ok"}` {
		t.Fatalf("unexpected text %q", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(gotPath, "gemini-2.5-flash:generateContent") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	genCfg, _ := gotBody["generationConfig"].(map[string]any)
	if genCfg["responseMimeType"] != "application/json" {
		t.Fatalf("expected json mime type, got %v", gotBody["generationConfig"])
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "gemini-2.5-flash", Options{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
