package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// daysPerMonth is the approximate-month renewal policy: one purchased
// month extends the subscription by exactly 30 days.
const daysPerMonth = 30

// RenewalService owns the renewal-approval state machine. Decisions go
// through a compare-and-set in the repository so two operators racing
// on the same request cannot both win.
type RenewalService struct {
	renewals   repository.RenewalRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	unitCost   int
	now        func() time.Time
}

// RenewalDependencies bundles collaborators for the renewal service.
type RenewalDependencies struct {
	RenewalRepo repository.RenewalRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	UnitCost    int
}

// NewRenewalService constructs the service.
func NewRenewalService(deps RenewalDependencies) *RenewalService {
	unitCost := deps.UnitCost
	if unitCost <= 0 {
		unitCost = 15
	}
	return &RenewalService{
		renewals:   deps.RenewalRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		unitCost:   unitCost,
		now:        time.Now,
	}
}

// Submit records a renewal request with a server-computed cost and
// leaves it pending for an operator.
func (s *RenewalService) Submit(ctx context.Context, requesterID int64, subscriptionName string, months int) (*domain.RenewalRequest, error) {
	subscriptionName = strings.TrimSpace(subscriptionName)
	if subscriptionName == "" {
		return nil, apperrors.NewValidationError("subscription name is required", nil)
	}
	if months < 1 {
		return nil, apperrors.NewValidationError("months must be at least 1", map[string]any{"months": months})
	}

	req := &domain.RenewalRequest{
		RequesterID:      requesterID,
		SubscriptionName: subscriptionName,
		Months:           months,
		Cost:             months * s.unitCost,
		Status:           domain.RenewalStatusPending,
	}
	if err := s.renewals.Create(ctx, req); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventRenewalSubmitted,
		EntityID: req.ID,
		ActorID:  requesterID,
		Payload: events.RenewalSubmittedPayload{
			RequesterID:      requesterID,
			SubscriptionName: req.SubscriptionName,
			Months:           req.Months,
			Cost:             req.Cost,
		},
	})
	return req, nil
}

// Decide applies an operator decision. Approve and reject are terminal;
// contest parks the request until a later approve or reject. Deciding a
// terminal request fails with AlreadyTerminal no matter the decision.
func (s *RenewalService) Decide(ctx context.Context, renewalID string, operatorID int64, decision domain.RenewalDecision, notes *string) (*domain.RenewalRequest, error) {
	target, err := statusFor(decision)
	if err != nil {
		return nil, err
	}

	req, err := s.renewals.GetByID(ctx, renewalID)
	if err != nil {
		return nil, apperrors.NewNotFound("renewal request", map[string]any{"renewal_id": renewalID})
	}
	if req.Status.Terminal() {
		return nil, apperrors.NewAlreadyTerminal(renewalID)
	}

	processedAt := s.now()
	var newExpiry *time.Time
	var won bool
	if decision == domain.DecisionApprove {
		// Approval and the expiry extension commit together; a storage
		// fault rolls both back so the request stays decidable.
		expiry, ok, err := s.renewals.Approve(ctx, req, operatorID, notes, processedAt, req.Months*daysPerMonth)
		if err != nil {
			return nil, err
		}
		won = ok
		if won {
			newExpiry = &expiry
			s.logger.Info("subscription expiry extended",
				zap.String("name", req.SubscriptionName),
				zap.Time("expires_at", expiry))
		}
	} else {
		won, err = s.renewals.Decide(ctx, renewalID, target, operatorID, notes, processedAt)
		if err != nil {
			return nil, err
		}
	}
	if !won {
		// Another operator decided between our read and the update.
		return nil, apperrors.NewAlreadyTerminal(renewalID)
	}

	req.Status = target
	req.ProcessedAt = &processedAt
	req.ProcessedBy = &operatorID
	if notes != nil {
		req.OperatorNotes = notes
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventRenewalDecided,
		EntityID: req.ID,
		ActorID:  operatorID,
		Payload: events.RenewalDecidedPayload{
			Decision:         decision,
			Status:           req.Status,
			RequesterID:      req.RequesterID,
			SubscriptionName: req.SubscriptionName,
			NewExpiry:        newExpiry,
		},
	})
	return req, nil
}

// GetForRequester fetches a renewal request, enforcing ownership.
func (s *RenewalService) GetForRequester(ctx context.Context, renewalID string, requesterID int64) (*domain.RenewalRequest, error) {
	req, err := s.renewals.GetByID(ctx, renewalID)
	if err != nil || req.RequesterID != requesterID {
		return nil, apperrors.NewNotFound("renewal request", map[string]any{"renewal_id": renewalID})
	}
	return req, nil
}

// ListUndecided returns the operator queue: pending plus contested.
func (s *RenewalService) ListUndecided(ctx context.Context, limit, offset int) ([]domain.RenewalRequest, error) {
	return s.renewals.ListByStatus(ctx,
		[]domain.RenewalStatus{domain.RenewalStatusPending, domain.RenewalStatusContested},
		limit, offset)
}

func statusFor(decision domain.RenewalDecision) (domain.RenewalStatus, error) {
	switch decision {
	case domain.DecisionApprove:
		return domain.RenewalStatusApproved, nil
	case domain.DecisionReject:
		return domain.RenewalStatusRejected, nil
	case domain.DecisionContest:
		return domain.RenewalStatusContested, nil
	default:
		return "", apperrors.NewValidationError("unknown decision", map[string]any{"decision": decision})
	}
}

func (s *RenewalService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
