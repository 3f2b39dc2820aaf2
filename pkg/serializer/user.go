// Package serializer translates panel accounts into the wire format sent to
// nodes. All transforms are pure and synchronous.
package serializer

import (
	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/wire"
)

// UserForNode builds the wire representation of a single account, optionally
// scoped to a subset of inbound tags.
func UserForNode(id int64, username string, proxies model.ProxySettings, inbounds []string) *wire.User {
	return &wire.User{
		ID:       id,
		Username: username,
		Proxies:  proxies,
		Inbounds: inbounds,
	}
}

// UserRemoval builds the wire message that deletes an account from a node.
// Only the identity travels; a removal carries no credentials or scope.
func UserRemoval(id int64, username string) *wire.User {
	return &wire.User{
		ID:       id,
		Username: username,
		Removed:  true,
	}
}

// UsersForNode builds the wire representation of a full account batch. The
// batch is serialized once and shared across every node in a broadcast.
func UsersForNode(users []model.User) *wire.UserBatch {
	out := make([]*wire.User, 0, len(users))
	for _, u := range users {
		out = append(out, UserForNode(u.ID, u.Username, u.ProxySettings, u.Inbounds))
	}
	return &wire.UserBatch{Users: out}
}
