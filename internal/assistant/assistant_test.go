package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/config"
)

func completionServer(t *testing.T, reply string, capture *ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func newTestAssistant(baseURL string) *Assistant {
	cfg := config.AssistantConfig{
		Model:          "gpt-3.5-turbo",
		MaxTokens:      400,
		Temperature:    0.3,
		TimeoutSeconds: 5,
	}
	return New(NewClient("test-key", WithBaseURL(baseURL)), cfg, zap.NewNop())
}

func TestResolveReturnsReply(t *testing.T) {
	var captured ChatCompletionRequest
	srv := completionServer(t, "Try clearing the app cache from settings.", &captured)
	defer srv.Close()

	outcome, err := newTestAssistant(srv.URL).Resolve(context.Background(), "video keeps buffering", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Escalate {
		t.Fatal("plain answer must not escalate")
	}
	if outcome.Reply != "Try clearing the app cache from settings." {
		t.Fatalf("got reply %q", outcome.Reply)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Fatalf("first message should carry the instruction profile, got role %q", captured.Messages[0].Role)
	}
	if captured.Messages[1].Content != "Problem: video keeps buffering" {
		t.Fatalf("got user content %q", captured.Messages[1].Content)
	}
}

func TestResolveDetectsEscalationMarker(t *testing.T) {
	srv := completionServer(t, "This problem REQUIRES SPECIALIZED TECHNICAL ASSISTANCE. A technician will contact you soon.", nil)
	defer srv.Close()

	outcome, err := newTestAssistant(srv.URL).Resolve(context.Background(), "device is bricked", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Escalate {
		t.Fatal("marker phrase must trigger escalation")
	}
	if outcome.Reply != "" {
		t.Fatalf("escalation outcome must not carry a reply, got %q", outcome.Reply)
	}
}

func TestResolveProviderFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestAssistant(srv.URL).Resolve(context.Background(), "anything", nil, false)
	if err == nil {
		t.Fatal("provider fault must surface as an error, not an outcome")
	}
}

func TestResolveEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	_, err := newTestAssistant(srv.URL).Resolve(context.Background(), "anything", nil, false)
	if err == nil {
		t.Fatal("empty choices must surface as an error")
	}
}

func TestResolveFollowupIncludesHistory(t *testing.T) {
	var captured ChatCompletionRequest
	srv := completionServer(t, "Thanks for confirming, try step 5 next.", &captured)
	defer srv.Close()

	history := []Message{
		{Role: "user", Content: "app will not start"},
		{Role: "assistant", Content: "restart the device"},
	}
	_, err := newTestAssistant(srv.URL).Resolve(context.Background(), "still not starting", history, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(captured.Messages) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d", len(captured.Messages))
	}
	if captured.Messages[1].Content != "app will not start" {
		t.Fatalf("history should precede the new problem, got %q", captured.Messages[1].Content)
	}
}
