// Package wire defines the payloads exchanged with remote nodes. The node
// registry passes these through without inspecting them.
package wire

import "proxy-fleet/pkg/model"

// User is the node-facing representation of a proxy account. An empty
// Inbounds list means the account applies to every inbound on the node.
// Removed marks a deletion: the node drops the account and ignores the
// rest of the message.
type User struct {
	ID       int64               `json:"id"`
	Username string              `json:"username"`
	Proxies  model.ProxySettings `json:"proxies"`
	Inbounds []string            `json:"inbounds,omitempty"`
	Removed  bool                `json:"removed,omitempty"`
}

// UserBatch carries a full account synchronization in one message.
type UserBatch struct {
	Users []*User `json:"users"`
}
