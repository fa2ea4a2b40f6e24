package domain

import "time"

// MessageSender indicates who authored a ticket message.
type MessageSender string

const (
	SenderUser      MessageSender = "USER"
	SenderOperator  MessageSender = "OPERATOR"
	SenderAssistant MessageSender = "ASSISTANT"
)

// TicketMessage captures one turn in a ticket thread. Immutable once
// appended.
type TicketMessage struct {
	ID        string
	TicketID  string
	Sender    MessageSender
	Body      string
	CreatedAt time.Time
}
