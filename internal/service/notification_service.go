package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/events"
)

// ChannelPublisher is the slice of the redis client the notification
// service needs. Satisfied by *redis.Client.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// OperatorNote is the message pushed to the operator channel.
type OperatorNote struct {
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity_id"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationService forwards domain events to the shared operator
// channel on Redis. Delivery is best effort: a publish failure is
// logged and never fails the originating operation.
type NotificationService struct {
	publisher ChannelPublisher
	channel   string
	logger    *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(publisher ChannelPublisher, channel string, logger *zap.Logger) *NotificationService {
	return &NotificationService{publisher: publisher, channel: channel, logger: logger}
}

// Register subscribes the service to every event operators care about.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketEscalated, s.onTicketEscalated)
	dispatcher.Subscribe(events.EventRenewalSubmitted, s.onRenewalSubmitted)
	dispatcher.Subscribe(events.EventRenewalDecided, s.onRenewalDecided)
	dispatcher.Subscribe(events.EventSubscriptionExpiring, s.onSubscriptionExpiring)
}

func (s *NotificationService) onTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	summary := fmt.Sprintf("ticket %q from user %d needs an operator", payload.Title, payload.RequesterID)
	return s.push(ctx, "ticket_escalated", event.EntityID, summary)
}

func (s *NotificationService) onRenewalSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RenewalSubmittedPayload)
	if !ok {
		return nil
	}
	summary := fmt.Sprintf("renewal of %q for %d month(s), cost %d, awaits a decision",
		payload.SubscriptionName, payload.Months, payload.Cost)
	return s.push(ctx, "renewal_submitted", event.EntityID, summary)
}

func (s *NotificationService) onRenewalDecided(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RenewalDecidedPayload)
	if !ok {
		return nil
	}
	summary := fmt.Sprintf("renewal of %q moved to %s", payload.SubscriptionName, payload.Status)
	if payload.NewExpiry != nil {
		summary = fmt.Sprintf("%s, new expiry %s", summary, payload.NewExpiry.Format("2006-01-02"))
	}
	return s.push(ctx, "renewal_decided", event.EntityID, summary)
}

func (s *NotificationService) onSubscriptionExpiring(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SubscriptionExpiringPayload)
	if !ok {
		return nil
	}
	summary := fmt.Sprintf("subscription %q of user %d expires in %d day(s)",
		payload.Name, payload.OwnerID, payload.DaysLeft)
	return s.push(ctx, "subscription_expiring", event.EntityID, summary)
}

func (s *NotificationService) push(ctx context.Context, kind, entityID, summary string) error {
	note := OperatorNote{
		Kind:      kind,
		EntityID:  entityID,
		Summary:   summary,
		Timestamp: time.Now(),
	}
	body, err := json.Marshal(note)
	if err != nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, s.channel, body).Err(); err != nil {
		s.logger.Warn("operator notification dropped",
			zap.String("kind", kind),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
	return nil
}
