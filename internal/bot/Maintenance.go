package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/forceu/uploadrelay/internal/logging"
)

// MarkerStore removes old markers of the signal store
type MarkerStore interface {
	PurgeOlderThan(age time.Duration) error
}

// RunMaintenance applies the outcomes reported by workers and removes expired sessions and markers
// once per interval, until ctx is done
func (b *Bot) RunMaintenance(ctx context.Context, interval, maxAge time.Duration, store MarkerStore) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.maintain(maxAge, store)
		}
	}
}

func (b *Bot) maintain(maxAge time.Duration, store MarkerStore) {
	_, err := b.registry.Reconcile()
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not read all job outcomes: %v", err))
	}
	b.registry.CollectGarbage(maxAge)
	if store == nil {
		return
	}
	err = store.PurgeOlderThan(maxAge)
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not purge old markers: %v", err))
	}
}
