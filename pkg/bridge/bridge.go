// Package bridge provides the transport implementations behind node handles:
// a REST bridge speaking HTTPS to the node API, and an RPC bridge holding a
// persistent websocket session.
package bridge

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/node"
)

// New creates the transport bridge for a node configuration. It is installed
// as the node.Factory of the controller's registry.
func New(cfg node.Config, logger *logrus.Entry) (node.Bridge, error) {
	switch cfg.Kind {
	case model.ConnectionREST:
		return newRESTBridge(cfg, logger)
	case model.ConnectionRPC:
		return newRPCBridge(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", node.ErrUnknownKind, cfg.Kind)
	}
}

// clientTLS builds a TLS config trusting the node's server CA. An empty CA
// means plain transport (dev setups).
func clientTLS(serverCA string) (*tls.Config, error) {
	if serverCA == "" {
		return nil, nil
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(serverCA)) {
		return nil, fmt.Errorf("invalid server ca certificate")
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
