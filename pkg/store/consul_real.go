//go:build consul

package store

import (
	"proxy-fleet/pkg/consul"
)

// NewConsulMirror creates a Consul-backed mirror (requires build tag consul).
func NewConsulMirror(addr string) ConfigMirror {
	return consul.NewMirror(addr)
}
