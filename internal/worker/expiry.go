package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/repository"
)

// reminderDays are the days-until-expiry thresholds that trigger an
// operator reminder. Zero covers the day of expiry itself.
var reminderDays = map[int]bool{7: true, 3: true, 1: true, 0: true}

// ExpiryNotifier scans subscriptions nearing expiry and emits a
// reminder event at most once per day per subscription.
type ExpiryNotifier struct {
	subscriptions repository.SubscriptionRepository
	dispatcher    events.Dispatcher
	interval      time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewExpiryNotifier constructs the notifier.
func NewExpiryNotifier(repo repository.SubscriptionRepository, dispatcher events.Dispatcher, interval time.Duration, logger *zap.Logger) *ExpiryNotifier {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &ExpiryNotifier{
		subscriptions: repo,
		dispatcher:    dispatcher,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// Run checks once immediately, then on a fixed interval until the
// context is cancelled.
func (w *ExpiryNotifier) Run(ctx context.Context) {
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single expiry scan.
func (w *ExpiryNotifier) RunOnce(ctx context.Context) {
	now := w.now()
	cutoff := now.AddDate(0, 0, 8)

	subs, err := w.subscriptions.ListExpiringBefore(ctx, cutoff)
	if err != nil {
		w.logger.Warn("expiry scan failed", zap.Error(err))
		return
	}

	for i := range subs {
		sub := &subs[i]
		if sub.ExpiresAt == nil {
			continue
		}
		// Signed day count: once the expiry date is behind us the
		// subscription has lapsed and reminders stop for good.
		days := daysUntil(*sub.ExpiresAt, now)
		if days < 0 || !reminderDays[days] {
			continue
		}
		if sub.LastReminderAt != nil && sameDay(*sub.LastReminderAt, now) {
			continue
		}

		_ = w.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSubscriptionExpiring,
			EntityID:  sub.ID,
			ActorID:   sub.OwnerID,
			Timestamp: now,
			Payload: events.SubscriptionExpiringPayload{
				OwnerID:  sub.OwnerID,
				Name:     sub.Name,
				DaysLeft: days,
				Expiry:   *sub.ExpiresAt,
			},
		})
		if err := w.subscriptions.TouchReminder(ctx, sub.ID, now); err != nil {
			w.logger.Warn("reminder timestamp update failed",
				zap.String("subscription", sub.Name), zap.Error(err))
		}
	}
}

// daysUntil counts whole calendar days from now to expiry; negative
// once the expiry date has passed.
func daysUntil(expiry, now time.Time) int {
	ey, em, ed := expiry.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
