package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/journal"
	"proxy-fleet/pkg/node"
	"proxy-fleet/pkg/notification"
)

// HealthMonitor polls the registry's health classification, journals every
// transition, and raises notifications when a node breaks or recovers.
type HealthMonitor struct {
	mgr     *node.Manager
	journal *journal.Journal
	queues  *notification.Queues
	logger  *logrus.Entry

	mu   sync.Mutex
	last map[int64]node.Health
}

func NewHealthMonitor(mgr *node.Manager, j *journal.Journal, q *notification.Queues, logger *logrus.Entry) *HealthMonitor {
	return &HealthMonitor{
		mgr:     mgr,
		journal: j,
		queues:  q,
		logger:  logger,
		last:    make(map[int64]node.Health),
	}
}

// Start launches the monitor loop. If interval <= 0, it is a no-op.
func (hm *HealthMonitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			hm.scan(ctx)
		}
	}()
}

func (hm *HealthMonitor) scan(ctx context.Context) {
	hm.mu.Lock()
	prev := hm.last
	hm.mu.Unlock()

	current := make(map[int64]node.Health)
	for id, b := range hm.mgr.GetNodes() {
		h, err := b.GetHealth(ctx)
		if err != nil {
			hm.logger.WithField("node", id).WithError(err).Warn("health scan query failed")
			// A failed query is not a transition. Keep the last known
			// state so the node neither looks removed nor re-announces
			// itself once the query works again.
			if old, ok := prev[id]; ok {
				current[id] = old
			}
			continue
		}
		current[id] = h
	}

	hm.mu.Lock()
	hm.last = current
	hm.mu.Unlock()

	for id, h := range current {
		old, seen := prev[id]
		if seen && old == h {
			continue
		}
		from := "unknown"
		if seen {
			from = old.String()
		}
		hm.logger.WithFields(logrus.Fields{"node": id, "from": from, "to": h.String()}).Info("node health changed")
		hm.journal.Record(ctx, id, "health", from+" -> "+h.String())

		if hm.queues != nil && (h == node.HealthBroken || (seen && old == node.HealthBroken)) {
			hm.queues.EnqueueTelegram(notification.TelegramMessage{
				Text: notification.NodeAlert(id, from, h.String()),
			})
			hm.queues.EnqueueDiscord(notification.DiscordMessage{
				Payload: notification.DiscordAlert(id, from, h.String()),
			})
		}
	}
}

// StartNotificationFlusher periodically drains the notification queues.
func StartNotificationFlusher(ctx context.Context, sender *notification.Sender, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Final flush so shutdown does not strand queued alerts.
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				sender.Flush(flushCtx)
				cancel()
				return
			case <-ticker.C:
				sender.Flush(ctx)
			}
		}
	}()
}
