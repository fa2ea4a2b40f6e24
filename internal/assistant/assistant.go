package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/config"
)

// Message is one turn of conversation context passed to Resolve.
type Message struct {
	Role    string
	Content string
}

// Outcome is the result of a resolution attempt. Escalate is true when
// the provider replied but declined to resolve; a provider fault is
// reported separately through the error return so "failed" and
// "declined" stay distinguishable.
type Outcome struct {
	Reply    string
	Escalate bool
}

// Resolver decides whether a problem report can be answered
// automatically.
type Resolver interface {
	Resolve(ctx context.Context, problemText string, history []Message, isFollowup bool) (Outcome, error)
}

// Assistant applies the fixed instruction profile to a completion
// provider and interprets the reply.
type Assistant struct {
	client *Client
	cfg    config.AssistantConfig
	logger *zap.Logger
}

// New constructs the assistant.
func New(client *Client, cfg config.AssistantConfig, logger *zap.Logger) *Assistant {
	return &Assistant{client: client, cfg: cfg, logger: logger}
}

// Resolve asks the provider for an answer to the problem text. The
// provider call is bounded by the configured timeout.
func (a *Assistant) Resolve(ctx context.Context, problemText string, history []Message, isFollowup bool) (Outcome, error) {
	profile := systemProfile
	if isFollowup {
		profile += followupAddendum
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: profile})
	for _, msg := range history {
		messages = append(messages, ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: "Problem: " + problemText})

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout())
	defer cancel()

	reply, err := a.client.CreateChatCompletion(callCtx, &ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		a.logger.Warn("completion provider call failed", zap.Error(err))
		return Outcome{}, err
	}

	if containsEscalationMarker(reply) {
		return Outcome{Escalate: true}, nil
	}
	return Outcome{Reply: reply}, nil
}

func containsEscalationMarker(reply string) bool {
	lowered := strings.ToLower(reply)
	for _, marker := range escalationMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
