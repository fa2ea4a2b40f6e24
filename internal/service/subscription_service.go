package service

import (
	"context"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// SubscriptionService exposes read access to subscriptions. Writes
// happen only through approved renewals.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(repo repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subscriptions: repo}
}

// GetForOwner fetches a subscription by name, enforcing ownership
// unless the caller is an operator.
func (s *SubscriptionService) GetForOwner(ctx context.Context, name string, callerID int64, operator bool) (*domain.Subscription, error) {
	sub, err := s.subscriptions.GetByName(ctx, name)
	if err != nil {
		return nil, apperrors.NewNotFound("subscription", map[string]any{"name": name})
	}
	if !operator && sub.OwnerID != callerID {
		return nil, apperrors.NewNotFound("subscription", map[string]any{"name": name})
	}
	return sub, nil
}
