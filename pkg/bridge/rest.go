package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/node"
	"proxy-fleet/pkg/wire"
)

const (
	pingInterval   = 15 * time.Second
	requestTimeout = 10 * time.Second
)

// restBridge reaches a node over its HTTPS API. Health is probed by a
// background ping loop and refined by the outcome of every call.
type restBridge struct {
	cfg    node.Config
	base   string
	client *http.Client
	logger *logrus.Entry

	mu     sync.RWMutex
	health node.Health

	stop     chan struct{}
	stopOnce sync.Once
}

func newRESTBridge(cfg node.Config, logger *logrus.Entry) (node.Bridge, error) {
	tlsCfg, err := clientTLS(cfg.ServerCA)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
	}
	scheme := "http"
	if tlsCfg != nil {
		scheme = "https"
	}

	b := &restBridge{
		cfg:    cfg,
		base:   scheme + "://" + cfg.Address + ":" + strconv.Itoa(cfg.Port),
		logger: logger,
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
		health: node.HealthNotConnected,
		stop:   make(chan struct{}),
	}
	go b.pingLoop()
	return b, nil
}

func (b *restBridge) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		if err := b.do(ctx, http.MethodGet, "/ping", nil); err != nil {
			b.logger.WithError(err).Debug("ping failed")
		}
		cancel()

		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}
	}
}

// observe records the outcome of a remote call. Invalid is terminal and is
// never overwritten by transport traffic.
func (b *restBridge) observe(h node.Health) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.health == node.HealthInvalid {
		return
	}
	b.health = h
}

func (b *restBridge) do(ctx context.Context, method, path string, payload interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", b.cfg.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.observe(node.HealthBroken)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		b.observe(node.HealthBroken)
		return fmt.Errorf("node %s: unexpected status %s", b.cfg.Name, resp.Status)
	}
	b.observe(node.HealthHealthy)
	return nil
}

func (b *restBridge) SetHealth(_ context.Context, h node.Health) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.health = h
	return nil
}

func (b *restBridge) GetHealth(_ context.Context) (node.Health, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.health, nil
}

func (b *restBridge) Stop(_ context.Context) error {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.client.CloseIdleConnections()
	})
	return nil
}

func (b *restBridge) UpdateUsers(ctx context.Context, batch *wire.UserBatch) error {
	return b.do(ctx, http.MethodPut, "/users", batch)
}

func (b *restBridge) UpdateUser(ctx context.Context, user *wire.User) error {
	return b.do(ctx, http.MethodPost, "/user", user)
}
