package node

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/wire"
)

// ErrUnknownKind is returned when a node configuration names a connection
// kind no bridge implementation exists for.
var ErrUnknownKind = errors.New("unknown node connection kind")

// Bridge is the capability set of one remote node connection. Implementations
// own the health field: they move it among NotConnected, Healthy and Broken
// as the connection changes; the registry only writes Invalid during
// retirement. All methods are remote calls and may fail.
type Bridge interface {
	SetHealth(ctx context.Context, h Health) error
	GetHealth(ctx context.Context) (Health, error)
	Stop(ctx context.Context) error
	UpdateUsers(ctx context.Context, batch *wire.UserBatch) error
	UpdateUser(ctx context.Context, user *wire.User) error
}

// Factory constructs a bridge from a node configuration. It must reject an
// unknown connection kind with ErrUnknownKind.
type Factory func(cfg Config, logger *logrus.Entry) (Bridge, error)

// Config carries the immutable connection parameters of one node handle.
// Extra is opaque metadata handed to the transport untouched.
type Config struct {
	ID       int64
	Kind     model.ConnectionKind
	Address  string
	Port     int
	ServerCA string
	APIKey   string
	Name     string
	MaxLogs  int
	Extra    map[string]interface{}
}

// ConfigFromNode maps a persisted node row to a handle configuration.
func ConfigFromNode(n model.Node) Config {
	return Config{
		ID:       n.ID,
		Kind:     n.ConnectionKind,
		Address:  n.Address,
		Port:     n.Port,
		ServerCA: n.ServerCA,
		APIKey:   n.APIKey,
		Name:     n.Name,
		MaxLogs:  n.MaxLogs,
		Extra: map[string]interface{}{
			"id":                n.ID,
			"usage_coefficient": n.UsageCoefficient,
		},
	}
}

func (c Config) validKind() bool {
	return c.Kind == model.ConnectionREST || c.Kind == model.ConnectionRPC
}
