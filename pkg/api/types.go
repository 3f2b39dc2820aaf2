package api

import "proxy-fleet/pkg/model"

// NodeRequest creates or replaces a node configuration.
type NodeRequest struct {
	ID               int64                `json:"id"`
	Name             string               `json:"name"`
	Address          string               `json:"address"`
	Port             int                  `json:"port"`
	ConnectionKind   model.ConnectionKind `json:"connectionKind"`
	ServerCA         string               `json:"serverCa,omitempty"`
	APIKey           string               `json:"apiKey,omitempty"`
	MaxLogs          int                  `json:"maxLogs,omitempty"`
	UsageCoefficient float64              `json:"usageCoefficient,omitempty"`
}

// NodeView is a node row decorated with its live health.
type NodeView struct {
	model.Node
	Health string `json:"health"`
}

// HealthSummary classifies the fleet by current health.
type HealthSummary struct {
	Healthy      []int64 `json:"healthy"`
	Broken       []int64 `json:"broken"`
	NotConnected []int64 `json:"notConnected"`
}

// UserRequest creates or replaces a proxy account.
type UserRequest struct {
	Username      string              `json:"username"`
	ProxySettings model.ProxySettings `json:"proxySettings"`
	Inbounds      []string            `json:"inbounds,omitempty"`
	Enabled       *bool               `json:"enabled,omitempty"`
}
