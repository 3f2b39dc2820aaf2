package node

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/serializer"
	"proxy-fleet/pkg/wire"
)

// UpdateUsers pushes the full account batch to every node in the current
// snapshot. The batch is serialized once, not per node. A node that rejects
// the batch is logged and skipped; the broadcast itself never fails, and
// delivery is observable only through subsequent health queries.
func (m *Manager) UpdateUsers(ctx context.Context, users []model.User) {
	batch := serializer.UsersForNode(users)
	batchID := uuid.NewString()

	for id, b := range m.GetNodes() {
		if err := b.UpdateUsers(ctx, batch); err != nil {
			m.logger.WithFields(logrus.Fields{"node": id, "batch": batchID}).WithError(err).Error("user batch update failed")
		}
	}
	m.logger.WithFields(logrus.Fields{"batch": batchID, "users": len(batch.Users)}).Debug("user batch broadcast finished")
}

func (m *Manager) broadcastUser(ctx context.Context, u *wire.User) {
	for id, b := range m.GetNodes() {
		if err := b.UpdateUser(ctx, u); err != nil {
			m.logger.WithFields(logrus.Fields{"node": id, "user": u.Username}).WithError(err).Error("user update failed")
		}
	}
}

// UpdateUser pushes one account to every node, optionally scoped to a subset
// of inbound tags.
func (m *Manager) UpdateUser(ctx context.Context, user model.User, inbounds []string) {
	m.broadcastUser(ctx, serializer.UserForNode(user.ID, user.Username, user.ProxySettings, inbounds))
}

// RemoveUser instructs every node to drop the account. The deletion is
// marked explicitly on the wire so it can never be mistaken for an upsert
// without inbound restrictions.
func (m *Manager) RemoveUser(ctx context.Context, user model.User) {
	m.broadcastUser(ctx, serializer.UserRemoval(user.ID, user.Username))
}
