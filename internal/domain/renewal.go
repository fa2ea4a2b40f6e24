package domain

import "time"

// RenewalStatus enumerates the renewal-approval state machine.
// APPROVED and REJECTED are terminal; CONTESTED may only move to a
// terminal status, never back to PENDING.
type RenewalStatus string

const (
	RenewalStatusPending   RenewalStatus = "PENDING"
	RenewalStatusContested RenewalStatus = "CONTESTED"
	RenewalStatusApproved  RenewalStatus = "APPROVED"
	RenewalStatusRejected  RenewalStatus = "REJECTED"
)

// Terminal reports whether the status admits no further decisions.
func (s RenewalStatus) Terminal() bool {
	return s == RenewalStatusApproved || s == RenewalStatusRejected
}

// RenewalDecision enumerates operator actions on a renewal request.
type RenewalDecision string

const (
	DecisionApprove RenewalDecision = "APPROVE"
	DecisionReject  RenewalDecision = "REJECT"
	DecisionContest RenewalDecision = "CONTEST"
)

// RenewalRequest is a user-initiated, operator-approved subscription
// extension. Once a terminal status is set no field may change.
type RenewalRequest struct {
	ID               string
	RequesterID      int64
	SubscriptionName string
	Months           int
	Cost             int
	Status           RenewalStatus
	OperatorNotes    *string
	CreatedAt        time.Time
	ProcessedAt      *time.Time
	ProcessedBy      *int64
}
