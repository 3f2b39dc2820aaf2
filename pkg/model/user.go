package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProxySettings holds the per-protocol credentials pushed down to nodes.
type ProxySettings struct {
	Vmess       *VmessSettings       `json:"vmess,omitempty"`
	Vless       *VlessSettings       `json:"vless,omitempty"`
	Trojan      *TrojanSettings      `json:"trojan,omitempty"`
	Shadowsocks *ShadowsocksSettings `json:"shadowsocks,omitempty"`
}

type VmessSettings struct {
	UUID string `json:"id"`
}

type VlessSettings struct {
	UUID string `json:"id"`
	Flow string `json:"flow,omitempty"`
}

type TrojanSettings struct {
	Password string `json:"password"`
}

type ShadowsocksSettings struct {
	Password string `json:"password"`
	Method   string `json:"method,omitempty"`
}

func (p ProxySettings) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *ProxySettings) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = ProxySettings{}
		return nil
	default:
		return fmt.Errorf("unsupported proxy settings type %T", src)
	}
}

// StringList is stored as a JSON array column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported string list type %T", src)
	}
}

// User is a proxy account synchronized to every node in the fleet.
type User struct {
	ID            int64         `gorm:"primaryKey" json:"id"`
	Username      string        `gorm:"uniqueIndex;size:64" json:"username"`
	ProxySettings ProxySettings `gorm:"type:json" json:"proxySettings"`
	Inbounds      StringList    `gorm:"type:json" json:"inbounds,omitempty"`
	Enabled       bool          `gorm:"default:true" json:"enabled"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
