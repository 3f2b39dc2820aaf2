package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/node"
	"proxy-fleet/pkg/wire"
)

const redialDelay = 5 * time.Second

// rpcMessage is the envelope for controller -> node websocket traffic.
type rpcMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// rpcBridge keeps one persistent websocket session to a node and redials it
// until stopped. Health follows the session state.
type rpcBridge struct {
	cfg    node.Config
	url    string
	header http.Header
	dialer *websocket.Dialer
	logger *logrus.Entry

	mu     sync.Mutex // guards conn and health together
	conn   *websocket.Conn
	health node.Health

	stop     chan struct{}
	stopOnce sync.Once
}

func newRPCBridge(cfg node.Config, logger *logrus.Entry) (node.Bridge, error) {
	tlsCfg, err := clientTLS(cfg.ServerCA)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
	}
	scheme := "ws"
	if tlsCfg != nil {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: cfg.Address + ":" + strconv.Itoa(cfg.Port), Path: "/rpc"}

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("X-API-Key", cfg.APIKey)
	}

	b := &rpcBridge{
		cfg:    cfg,
		url:    u.String(),
		header: header,
		dialer: &websocket.Dialer{TLSClientConfig: tlsCfg, HandshakeTimeout: requestTimeout},
		logger: logger,
		health: node.HealthNotConnected,
		stop:   make(chan struct{}),
	}
	go b.loop()
	return b, nil
}

func (b *rpcBridge) loop() {
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		conn, resp, err := b.dialer.Dial(b.url, b.header)
		if err != nil {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			b.logger.WithError(err).WithField("status", status).Debug("rpc dial failed")
			b.observe(nil, node.HealthBroken)
			select {
			case <-b.stop:
				return
			case <-time.After(redialDelay):
			}
			continue
		}

		b.observe(conn, node.HealthHealthy)
		b.logger.Debug("rpc session established")

		b.readLoop(conn)
		b.observe(nil, node.HealthBroken)

		select {
		case <-b.stop:
			return
		case <-time.After(redialDelay):
		}
	}
}

// readLoop drains inbound messages until the session breaks. Nodes push log
// lines and status frames; the controller only needs the session liveness.
func (b *rpcBridge) readLoop(conn *websocket.Conn) {
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			b.logger.WithError(err).Debug("rpc session closed")
			_ = conn.Close()
			return
		}
	}
}

// observe swaps the session and health in one step. Invalid is terminal.
func (b *rpcBridge) observe(conn *websocket.Conn, h node.Health) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = conn
	if b.health == node.HealthInvalid {
		return
	}
	b.health = h
}

func (b *rpcBridge) send(msg rpcMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return fmt.Errorf("node %s: no rpc session", b.cfg.Name)
	}
	if err := b.conn.WriteJSON(msg); err != nil {
		_ = b.conn.Close()
		b.conn = nil
		if b.health != node.HealthInvalid {
			b.health = node.HealthBroken
		}
		return fmt.Errorf("node %s: %w", b.cfg.Name, err)
	}
	return nil
}

func (b *rpcBridge) SetHealth(_ context.Context, h node.Health) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.health = h
	return nil
}

func (b *rpcBridge) GetHealth(_ context.Context) (node.Health, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.health, nil
}

func (b *rpcBridge) Stop(_ context.Context) error {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.mu.Lock()
		if b.conn != nil {
			_ = b.conn.Close()
			b.conn = nil
		}
		b.mu.Unlock()
	})
	return nil
}

func (b *rpcBridge) UpdateUsers(_ context.Context, batch *wire.UserBatch) error {
	return b.send(rpcMessage{Type: "users_sync", Payload: batch})
}

func (b *rpcBridge) UpdateUser(_ context.Context, user *wire.User) error {
	return b.send(rpcMessage{Type: "user_update", Payload: user})
}
