package workers

import (
	"chat-hub/domain"
	"context"
	"log/slog"
	"time"
)

// IdleTracker is the part of the hub the reaper needs.
type IdleTracker interface {
	IdleSince(cutoff time.Time) []domain.ConnectionID
	Detach(connectionID domain.ConnectionID)
}

// IdleReaper detaches connections that showed no activity for idleTimeout.
// Detaching a joined connection emits its Left event like any other detach.
type IdleReaper struct {
	log         *slog.Logger
	tracker     IdleTracker
	idleTimeout time.Duration
	interval    time.Duration
	now         func() time.Time
}

func NewIdleReaper(log *slog.Logger, tracker IdleTracker, idleTimeout, interval time.Duration) *IdleReaper {
	return &IdleReaper{
		log:         log,
		tracker:     tracker,
		idleTimeout: idleTimeout,
		interval:    interval,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (w *IdleReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping idle reaper")
			return nil
		case <-ticker.C:
			w.Reap()
		}
	}
}

// Reap detaches every idle connection and returns how many were detached.
func (w *IdleReaper) Reap() int {
	idle := w.tracker.IdleSince(w.now().Add(-w.idleTimeout))
	for _, id := range idle {
		w.log.Info("Detaching idle connection", "connection_id", id)
		w.tracker.Detach(id)
	}
	return len(idle)
}
