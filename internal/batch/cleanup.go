package batch

import (
	"context"
	"log/slog"
	"time"
)

// CleanupInterval is how often RunCleanupLoop purges expired batches.
const CleanupInterval = 1 * time.Hour

// Purge deletes stored batches created more than retention ago. A zero
// retention or a service without a store deletes nothing.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if s.store == nil || retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention).Unix()
	return s.store.DeleteCreatedBefore(ctx, cutoff)
}

// RunCleanupLoop purges batches older than retention immediately and then
// every interval until ctx is cancelled.
func RunCleanupLoop(ctx context.Context, s *Service, retention, interval time.Duration) {
	if interval <= 0 {
		interval = CleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	purge := func() {
		n, err := s.Purge(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("failed to purge expired batches", "error", err)
			}
			return
		}
		if n > 0 {
			slog.Info("purged expired batches", "count", n, "retention", retention)
		}
	}

	purge()
	for {
		select {
		case <-ticker.C:
			purge()
		case <-ctx.Done():
			return
		}
	}
}
