//go:build !consul

package store

import (
	"github.com/sirupsen/logrus"
)

// NewConsulMirror returns a no-op mirror when the consul build tag is not
// enabled.
func NewConsulMirror(addr string) ConfigMirror {
	logrus.WithField("addr", addr).Warn("consul mirror requested but consul build tag not enabled; mirroring disabled")
	return NewNoop()
}
