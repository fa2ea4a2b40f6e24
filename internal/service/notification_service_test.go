package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/events"
)

type fakePublisher struct {
	channels []string
	messages [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channels = append(f.channels, channel)
	if body, ok := message.([]byte); ok {
		f.messages = append(f.messages, body)
	}
	return redis.NewIntCmd(ctx)
}

func TestNotificationsPushedToOperatorChannel(t *testing.T) {
	publisher := &fakePublisher{}
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(publisher, "support:operator", zap.NewNop()).Register(dispatcher)

	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:        "e1",
		Type:      events.EventTicketEscalated,
		EntityID:  "t-1",
		Timestamp: time.Now(),
		Payload:   events.TicketEscalatedPayload{RequesterID: 42, Title: "no sound"},
	})
	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:        "e2",
		Type:      events.EventRenewalSubmitted,
		EntityID:  "rn-1",
		Timestamp: time.Now(),
		Payload:   events.RenewalSubmittedPayload{RequesterID: 42, SubscriptionName: "premium-list", Months: 2, Cost: 30},
	})

	if len(publisher.messages) != 2 {
		t.Fatalf("expected 2 notes on the channel, got %d", len(publisher.messages))
	}
	for _, channel := range publisher.channels {
		if channel != "support:operator" {
			t.Fatalf("note pushed to wrong channel %q", channel)
		}
	}

	var note OperatorNote
	if err := json.Unmarshal(publisher.messages[0], &note); err != nil {
		t.Fatalf("note is not valid JSON: %v", err)
	}
	if note.Kind != "ticket_escalated" || note.EntityID != "t-1" {
		t.Fatalf("got note %+v", note)
	}
	if note.Summary == "" {
		t.Fatal("note must carry a human-readable summary")
	}
}

func TestUnrelatedEventsIgnored(t *testing.T) {
	publisher := &fakePublisher{}
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(publisher, "support:operator", zap.NewNop()).Register(dispatcher)

	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:        "e1",
		Type:      events.EventTicketOpened,
		EntityID:  "t-1",
		Timestamp: time.Now(),
		Payload:   events.TicketOpenedPayload{RequesterID: 42, Title: "hello", Resolved: true},
	})

	if len(publisher.messages) != 0 {
		t.Fatalf("ordinary opens are not operator notifications, got %d", len(publisher.messages))
	}
}
