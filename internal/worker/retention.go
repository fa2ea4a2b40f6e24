package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/cache"
)

// RetentionSweeper periodically purges conversation messages older than
// the retention window.
type RetentionSweeper struct {
	store    *cache.ConversationStore
	interval time.Duration
	logger   *zap.Logger
}

// NewRetentionSweeper constructs the sweeper.
func NewRetentionSweeper(store *cache.ConversationStore, interval time.Duration, logger *zap.Logger) *RetentionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{store: store, interval: interval, logger: logger}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (w *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if purged := w.store.Sweep(); purged > 0 {
				w.logger.Info("conversation retention sweep", zap.Int("purged", purged))
			}
		}
	}
}
