package model_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/envoy/internal/config"
	"github.com/JaimeStill/envoy/internal/model"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "{\"summary\": \"done\"}"}, "finish_reason": "stop"}
  ],
  "usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

type capturedMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type capturedRequest struct {
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float32           `json:"temperature"`
	Messages    []capturedMessage `json:"messages"`
}

func fakeEndpoint(t *testing.T, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completion))
	}))
}

func TestOpenAIText(t *testing.T) {
	var captured capturedRequest
	srv := fakeEndpoint(t, &captured)
	defer srv.Close()

	cfg := config.ModelConfig{
		Type:        config.ModelLLM,
		APIBase:     srv.URL + "/v1",
		APIKey:      "test",
		Model:       "test-model",
		MaxTokens:   256,
		Temperature: 0.5,
	}
	client := model.NewOpenAI(cfg, discardLogger(), model.WithHTTPClient(srv.Client()))

	resp, err := client.Complete(context.Background(), model.Request{System: "be brief", User: "hello"})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if resp.Content != `{"summary": "done"}` {
		t.Errorf("content: got %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 16 {
		t.Errorf("total tokens: got %d, want 16", resp.Usage.TotalTokens)
	}
	if captured.Model != "test-model" || captured.MaxTokens != 256 {
		t.Errorf("request: got model=%s max_tokens=%d", captured.Model, captured.MaxTokens)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("messages: got %+v", captured.Messages)
	}

	var user string
	if err := json.Unmarshal(captured.Messages[1].Content, &user); err != nil || user != "hello" {
		t.Errorf("user content: got %s", captured.Messages[1].Content)
	}
	if client.Name() != "test-model" {
		t.Errorf("name: got %s", client.Name())
	}
}

func TestOpenAIImagesKeepOrder(t *testing.T) {
	var captured capturedRequest
	srv := fakeEndpoint(t, &captured)
	defer srv.Close()

	cfg := config.ModelConfig{Type: config.ModelVLM, APIBase: srv.URL + "/v1", Model: "vision"}
	client := model.NewOpenAI(cfg, discardLogger(), model.WithHTTPClient(srv.Client()))

	images := []string{"data:image/png;base64,AAAA", "https://example.com/b.jpg"}
	if _, err := client.Complete(context.Background(), model.Request{User: "describe", Images: images}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if len(captured.Messages) != 1 {
		t.Fatalf("messages: got %d, want 1 (no system prompt)", len(captured.Messages))
	}

	var parts []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	if err := json.Unmarshal(captured.Messages[0].Content, &parts); err != nil {
		t.Fatalf("decode parts: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("parts: got %d, want 3", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "describe" {
		t.Errorf("parts[0]: got %+v", parts[0])
	}
	for i, want := range images {
		if parts[i+1].ImageURL.URL != want {
			t.Errorf("parts[%d]: got %s, want %s", i+1, parts[i+1].ImageURL.URL, want)
		}
	}
}
