package model

import "time"

// ConnectionKind selects the transport used to reach a node.
type ConnectionKind string

const (
	ConnectionREST ConnectionKind = "rest"
	ConnectionRPC  ConnectionKind = "rpc"
)

// Node is the persisted configuration of a remote proxy node. The live
// connection handle is rebuilt from this row at startup and on every change.
type Node struct {
	ID               int64          `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"uniqueIndex;size:64" json:"name"`
	Address          string         `gorm:"size:255" json:"address"`
	Port             int            `json:"port"`
	ConnectionKind   ConnectionKind `gorm:"size:8" json:"connectionKind"`
	ServerCA         string         `gorm:"type:text" json:"-"`
	APIKey           string         `gorm:"size:128" json:"-"`
	MaxLogs          int            `gorm:"default:1000" json:"maxLogs"`
	UsageCoefficient float64        `gorm:"default:1" json:"usageCoefficient"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}
