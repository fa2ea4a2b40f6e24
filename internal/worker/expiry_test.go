package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
)

type fakeSubRepo struct {
	subs []*domain.Subscription
}

func (r *fakeSubRepo) Create(_ context.Context, sub *domain.Subscription) error {
	r.subs = append(r.subs, sub)
	return nil
}

func (r *fakeSubRepo) GetByName(_ context.Context, name string) (*domain.Subscription, error) {
	for _, sub := range r.subs {
		if sub.Name == name {
			return sub, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeSubRepo) UpdateExpiry(_ context.Context, name string, expiresAt time.Time) error {
	sub, err := r.GetByName(context.Background(), name)
	if err != nil {
		return err
	}
	sub.ExpiresAt = &expiresAt
	return nil
}

func (r *fakeSubRepo) ListExpiringBefore(_ context.Context, cutoff time.Time) ([]domain.Subscription, error) {
	var out []domain.Subscription
	for _, sub := range r.subs {
		if sub.ExpiresAt != nil && !sub.ExpiresAt.After(cutoff) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubRepo) TouchReminder(_ context.Context, id string, at time.Time) error {
	for _, sub := range r.subs {
		if sub.ID == id {
			sub.LastReminderAt = &at
			return nil
		}
	}
	return errors.New("not found")
}

func expiryFixture(now time.Time) (*ExpiryNotifier, *fakeSubRepo, *[]events.SubscriptionExpiringPayload) {
	repo := &fakeSubRepo{}
	dispatcher := events.NewInMemoryDispatcher()

	var reminders []events.SubscriptionExpiringPayload
	dispatcher.Subscribe(events.EventSubscriptionExpiring, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.SubscriptionExpiringPayload); ok {
			reminders = append(reminders, payload)
		}
		return nil
	})

	notifier := NewExpiryNotifier(repo, dispatcher, time.Hour, zap.NewNop())
	notifier.now = func() time.Time { return now }
	return notifier, repo, &reminders
}

func addSub(repo *fakeSubRepo, id, name string, expiry time.Time) {
	repo.subs = append(repo.subs, &domain.Subscription{
		ID: id, Name: name, OwnerID: 42, ExpiresAt: &expiry,
	})
}

func TestExpiryReminderThresholds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	notifier, repo, reminders := expiryFixture(now)

	addSub(repo, "s7", "seven-days", now.AddDate(0, 0, 7).Add(time.Hour))
	addSub(repo, "s3", "three-days", now.AddDate(0, 0, 3).Add(time.Hour))
	addSub(repo, "s1", "one-day", now.AddDate(0, 0, 1).Add(time.Hour))
	addSub(repo, "s0", "today", now.Add(time.Hour))
	addSub(repo, "s5", "five-days", now.AddDate(0, 0, 5).Add(time.Hour))

	notifier.RunOnce(context.Background())

	if len(*reminders) != 4 {
		t.Fatalf("expected reminders at 7/3/1/0 days only, got %d", len(*reminders))
	}
	for _, payload := range *reminders {
		if payload.Name == "five-days" {
			t.Fatal("5 days out is not a reminder threshold")
		}
	}
}

func TestExpiryReminderOncePerDay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	notifier, repo, reminders := expiryFixture(now)

	addSub(repo, "s1", "one-day", now.AddDate(0, 0, 1).Add(time.Hour))

	notifier.RunOnce(context.Background())
	notifier.RunOnce(context.Background())
	if len(*reminders) != 1 {
		t.Fatalf("same-day rescan must not repeat the reminder, got %d", len(*reminders))
	}

	// The next day the subscription is at the 0-day threshold and may
	// remind again.
	notifier.now = func() time.Time { return now.AddDate(0, 0, 1) }
	notifier.RunOnce(context.Background())
	if len(*reminders) != 2 {
		t.Fatalf("next-day scan should remind again, got %d", len(*reminders))
	}
}

func TestLapsedSubscriptionNotReminded(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	notifier, repo, reminders := expiryFixture(now)

	addSub(repo, "sx", "lapsed", now.AddDate(0, 0, -1))

	notifier.RunOnce(context.Background())
	if len(*reminders) != 0 {
		t.Fatalf("subscription past its expiry date must not remind, got %d", len(*reminders))
	}
}

func TestRemindersStopAfterExpiryDay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	notifier, repo, reminders := expiryFixture(now)

	// Expires later today: the 0-day reminder fires on the expiry day
	// and then never again, no matter how often the scan keeps
	// returning the expired row.
	addSub(repo, "s0", "ending-today", now.Add(time.Hour))

	notifier.RunOnce(context.Background())
	if len(*reminders) != 1 {
		t.Fatalf("expected the expiry-day reminder, got %d", len(*reminders))
	}

	for day := 1; day <= 5; day++ {
		scanAt := now.AddDate(0, 0, day)
		notifier.now = func() time.Time { return scanAt }
		notifier.RunOnce(context.Background())
	}
	if len(*reminders) != 1 {
		t.Fatalf("lapsed subscription must stay silent on later days, got %d", len(*reminders))
	}
}
