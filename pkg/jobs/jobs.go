// Package jobs runs the controller's periodic work: full user
// synchronization to all nodes, node health monitoring, and notification
// queue flushing.
package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proxy-fleet/pkg/db"
	"proxy-fleet/pkg/node"
)

// StartUserSync periodically rebroadcasts the full enabled-account set to
// every node. This is the retry path for broadcasts that partially failed:
// the dispatcher itself never retries. If interval <= 0, it is a no-op.
func StartUserSync(ctx context.Context, gdb *gorm.DB, mgr *node.Manager, interval time.Duration, logger *logrus.Entry) {
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
			users, err := db.ListEnabledUsers(gdb)
			if err != nil {
				logger.WithError(err).Error("user sync: load users failed")
				continue
			}
			mgr.UpdateUsers(ctx, users)
		}
	}()
}
