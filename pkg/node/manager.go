// Package node owns the registry of live node handles and the fan-out of
// user updates across the fleet.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultStopTimeout bounds the remote calls made while retiring a handle.
// Retirement runs under the writer lock, so an unbounded call here would
// stall every registry writer behind one dead node.
const DefaultStopTimeout = 10 * time.Second

// Entry pairs a node id with its live handle.
type Entry struct {
	ID     int64
	Bridge Bridge
}

// Manager is the exclusive owner of the id -> handle mapping. Readers run
// concurrently; UpdateNode and RemoveNode are serialized against everything
// else so no caller ever observes a half-replaced handle.
type Manager struct {
	mu          sync.RWMutex
	nodes       map[int64]Bridge
	factory     Factory
	logger      *logrus.Entry
	stopTimeout time.Duration
}

// NewManager builds an empty registry. A stopTimeout of zero selects
// DefaultStopTimeout.
func NewManager(factory Factory, logger *logrus.Entry, stopTimeout time.Duration) *Manager {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Manager{
		nodes:       make(map[int64]Bridge),
		factory:     factory,
		logger:      logger,
		stopTimeout: stopTimeout,
	}
}

// retire marks a handle invalid and asks its transport to stop. Failures are
// swallowed on purpose: discarding a handle is best-effort cleanup, and a
// misbehaving node must never block its own replacement or removal.
func (m *Manager) retire(ctx context.Context, id int64, b Bridge) {
	ctx, cancel := context.WithTimeout(ctx, m.stopTimeout)
	defer cancel()

	if err := b.SetHealth(ctx, HealthInvalid); err != nil {
		m.logger.WithField("node", id).WithError(err).Warn("retire: set health failed")
	}
	if err := b.Stop(ctx); err != nil {
		m.logger.WithField("node", id).WithError(err).Warn("retire: stop failed")
	}
}

// UpdateNode installs a handle for the given configuration, retiring any
// handle currently registered under the same id. The whole transition runs
// under the writer lock: a concurrent GetNode sees either the old handle or
// the new one, never an intermediate state.
func (m *Manager) UpdateNode(ctx context.Context, cfg Config) (Bridge, error) {
	if !cfg.validKind() {
		return nil, fmt.Errorf("node %d: %w: %q", cfg.ID, ErrUnknownKind, cfg.Kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.nodes[cfg.ID]; ok {
		m.retire(ctx, cfg.ID, old)
		delete(m.nodes, cfg.ID)
	}

	b, err := m.factory(cfg, m.logger.WithField("node", cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("create node %d: %w", cfg.ID, err)
	}
	m.nodes[cfg.ID] = b

	m.logger.WithFields(logrus.Fields{"node": cfg.ID, "name": cfg.Name, "kind": cfg.Kind}).Info("node handle installed")

	return b, nil
}

// RemoveNode retires and drops the handle for id. Removing an absent id is a
// no-op.
func (m *Manager) RemoveNode(ctx context.Context, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.nodes[id]
	if !ok {
		return
	}
	m.retire(ctx, id, old)
	delete(m.nodes, id)

	m.logger.WithField("node", id).Info("node handle removed")
}

// GetNode returns the live handle for id, if one is registered.
func (m *Manager) GetNode(id int64) (Bridge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.nodes[id]
	return b, ok
}

// GetNodes returns a point-in-time copy of the registry. The copy may go
// stale immediately: a handle in it can be retired by a concurrent writer.
func (m *Manager) GetNodes() map[int64]Bridge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]Bridge, len(m.nodes))
	for id, b := range m.nodes {
		out[id] = b
	}
	return out
}

// Len reports how many handles are currently registered.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// nodesInHealth classifies the current snapshot by health. The health query
// is a live remote call per handle and runs outside the registry lock so a
// slow node cannot starve writers. A node whose query fails is excluded from
// the result, not an error for the whole scan.
func (m *Manager) nodesInHealth(ctx context.Context, want Health) []Entry {
	var out []Entry
	for id, b := range m.GetNodes() {
		h, err := b.GetHealth(ctx)
		if err != nil {
			m.logger.WithField("node", id).WithError(err).Warn("health query failed")
			continue
		}
		if h == want {
			out = append(out, Entry{ID: id, Bridge: b})
		}
	}
	return out
}

// GetHealthyNodes returns the nodes whose transport currently reports Healthy.
func (m *Manager) GetHealthyNodes(ctx context.Context) []Entry {
	return m.nodesInHealth(ctx, HealthHealthy)
}

// GetBrokenNodes returns the nodes whose transport currently reports Broken.
func (m *Manager) GetBrokenNodes(ctx context.Context) []Entry {
	return m.nodesInHealth(ctx, HealthBroken)
}

// GetNotConnectedNodes returns the nodes that have not connected yet.
func (m *Manager) GetNotConnectedNodes(ctx context.Context) []Entry {
	return m.nodesInHealth(ctx, HealthNotConnected)
}
