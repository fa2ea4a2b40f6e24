package dto

import "time"

// CreateRenewalRequest submits a renewal for operator review. Cost is
// computed server side and ignored if supplied.
type CreateRenewalRequest struct {
	SubscriptionName string `json:"subscription_name"`
	Months           int    `json:"months"`
}

// RenewalDecisionRequest carries an operator decision.
type RenewalDecisionRequest struct {
	Decision string  `json:"decision"`
	Notes    *string `json:"notes,omitempty"`
}

// RenewalResponse is the API representation of a renewal request.
type RenewalResponse struct {
	ID               string     `json:"id"`
	RequesterID      int64      `json:"requester_id"`
	SubscriptionName string     `json:"subscription_name"`
	Months           int        `json:"months"`
	Cost             int        `json:"cost"`
	Status           string     `json:"status"`
	OperatorNotes    *string    `json:"operator_notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// SubscriptionResponse is the API representation of a subscription.
type SubscriptionResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	OwnerID   int64      `json:"owner_id"`
	Cost      int        `json:"cost"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	DaysLeft  int        `json:"days_left"`
	Notes     *string    `json:"notes,omitempty"`
}
