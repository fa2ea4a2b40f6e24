package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen      TicketStatus = "OPEN"
	TicketStatusEscalated TicketStatus = "ESCALATED"
	TicketStatusClosed    TicketStatus = "CLOSED"
)

// Ticket is the aggregate for support requests. Its message history is
// append-only and the ticket itself is never physically deleted.
type Ticket struct {
	ID          string
	ExternalKey string
	RequesterID int64
	Title       string
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// Closed reports whether the ticket accepts no further processing.
func (t *Ticket) Closed() bool {
	return t.Status == TicketStatusClosed
}
