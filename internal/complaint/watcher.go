package complaint

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Subscribable is a connectivity source that pushes state changes.
type Subscribable interface {
	Connectivity
	Subscribe() (<-chan bool, func())
}

// WatchConnectivity syncs pending complaints every time the signal goes from
// offline to online, and once at start if already online. Sync failures are
// logged and left for the next transition. It returns when ctx is done.
func (s *Service) WatchConnectivity(ctx context.Context, signal Subscribable) error {
	changes, cancel := signal.Subscribe()
	defer cancel()

	if signal.Online() {
		s.syncAndLog(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case online, ok := <-changes:
			if !ok {
				return nil
			}
			if online {
				log.Info("connectivity restored, syncing offline complaints")
				s.syncAndLog(ctx)
			} else {
				log.Warn("connectivity lost, new complaints will be saved offline")
			}
		}
	}
}

func (s *Service) syncAndLog(ctx context.Context) {
	if _, err := s.TrySyncPending(ctx); err != nil {
		log.WithError(err).Warn("offline complaint sync failed")
	}
}
