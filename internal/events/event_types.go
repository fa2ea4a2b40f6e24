package events

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened         EventType = "ticket_opened"
	EventTicketMessageAdded   EventType = "ticket_message_added"
	EventTicketAutoResolved   EventType = "ticket_auto_resolved"
	EventTicketEscalated      EventType = "ticket_escalated"
	EventTicketClosed         EventType = "ticket_closed"
	EventRenewalSubmitted     EventType = "renewal_submitted"
	EventRenewalDecided       EventType = "renewal_decided"
	EventSubscriptionExpiring EventType = "subscription_expiring"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	RequesterID int64  `json:"requester_id"`
	Title       string `json:"title"`
	Resolved    bool   `json:"resolved"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string               `json:"message_id"`
	Sender      domain.MessageSender `json:"sender"`
	BodyPreview string               `json:"body_preview"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	RequesterID int64  `json:"requester_id"`
	Title       string `json:"title"`
	Reason      string `json:"reason"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ClosedBy int64 `json:"closed_by"`
	Operator bool  `json:"operator"`
}

// RenewalSubmittedPayload payload.
type RenewalSubmittedPayload struct {
	RequesterID      int64  `json:"requester_id"`
	SubscriptionName string `json:"subscription_name"`
	Months           int    `json:"months"`
	Cost             int    `json:"cost"`
}

// RenewalDecidedPayload payload.
type RenewalDecidedPayload struct {
	Decision         domain.RenewalDecision `json:"decision"`
	Status           domain.RenewalStatus   `json:"status"`
	RequesterID      int64                  `json:"requester_id"`
	SubscriptionName string                 `json:"subscription_name"`
	NewExpiry        *time.Time             `json:"new_expiry,omitempty"`
}

// SubscriptionExpiringPayload payload.
type SubscriptionExpiringPayload struct {
	OwnerID  int64     `json:"owner_id"`
	Name     string    `json:"name"`
	DaysLeft int       `json:"days_left"`
	Expiry   time.Time `json:"expiry"`
}
