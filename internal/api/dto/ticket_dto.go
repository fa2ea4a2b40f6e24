package dto

import "time"

// CreateTicketRequest opens a ticket with the problem description.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ReplyRequest appends a message to an existing ticket.
type ReplyRequest struct {
	Body string `json:"body"`
}

// ReplyResponse is the resolution-pipeline result: either an assistant
// reply or an escalation notice with reply_text omitted.
type ReplyResponse struct {
	TicketID  string  `json:"ticket_id"`
	Resolved  bool    `json:"resolved"`
	ReplyText *string `json:"reply_text,omitempty"`
}

// TicketSummary is the list representation of a ticket.
type TicketSummary struct {
	ID          string     `json:"id"`
	ExternalKey string     `json:"external_key"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// TicketMessageResponse is one thread entry.
type TicketMessageResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetail is a ticket with its full thread.
type TicketDetail struct {
	TicketSummary
	Description string                  `json:"description"`
	Messages    []TicketMessageResponse `json:"messages"`
}
