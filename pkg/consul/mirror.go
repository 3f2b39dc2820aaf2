//go:build consul

package consul

import (
	"encoding/json"
	"fmt"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"

	"proxy-fleet/pkg/model"
)

const nodePrefix = "proxy-fleet/nodes/"

// Mirror replicates node configuration rows into Consul KV.
type Mirror struct {
	cli *consulapi.Client
}

func NewMirror(addr string) *Mirror {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, _ := consulapi.NewClient(cfg) // ignore error for build; runtime will report
	return &Mirror{cli: cli}
}

func (m *Mirror) key(id int64) string {
	return nodePrefix + strconv.FormatInt(id, 10)
}

func (m *Mirror) SaveNode(n model.Node) error {
	if m.cli == nil {
		return fmt.Errorf("consul client not configured")
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = m.cli.KV().Put(&consulapi.KVPair{Key: m.key(n.ID), Value: b}, nil)
	return err
}

func (m *Mirror) DeleteNode(id int64) error {
	if m.cli == nil {
		return fmt.Errorf("consul client not configured")
	}
	_, err := m.cli.KV().Delete(m.key(id), nil)
	return err
}

func (m *Mirror) ListNodes() ([]model.Node, error) {
	if m.cli == nil {
		return nil, fmt.Errorf("consul client not configured")
	}
	pairs, _, err := m.cli.KV().List(nodePrefix, nil)
	if err != nil {
		return nil, err
	}
	var out []model.Node
	for _, p := range pairs {
		var n model.Node
		if err := json.Unmarshal(p.Value, &n); err == nil {
			out = append(out, n)
		}
	}
	return out, nil
}
