// Package store mirrors node configuration to an external KV so a standby
// controller can warm its registry without reaching the database.
package store

import "proxy-fleet/pkg/model"

// ConfigMirror replicates node configuration writes. Implementations must be
// safe for concurrent use.
type ConfigMirror interface {
	SaveNode(model.Node) error
	DeleteNode(id int64) error
	ListNodes() ([]model.Node, error)
}

type noopMirror struct{}

func (noopMirror) SaveNode(model.Node) error        { return nil }
func (noopMirror) DeleteNode(int64) error           { return nil }
func (noopMirror) ListNodes() ([]model.Node, error) { return nil, nil }

// NewNoop returns a mirror that drops every write.
func NewNoop() ConfigMirror { return noopMirror{} }
