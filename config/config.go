// Package config defines the configuration shapes the proxy core accepts
// as already-parsed Go structs (spec.md §6's TOOL_FILTER_CONFIG JSON shape
// plus a superset ProxyConfig for backends, sessions, and the load
// balancer). Loading a file from disk or environment is the cmd layer's
// concern, not the core's — FilterConfig and ProxyConfig themselves have
// no file I/O.
package config

import (
	"time"

	"github.com/toolgate/toolgate/filter"
	"github.com/toolgate/toolgate/gate"
	"github.com/toolgate/toolgate/loadbalancer"
	"github.com/toolgate/toolgate/upstream"
)

// TaskTypeConfig is the "taskType" object of TOOL_FILTER_CONFIG.
type TaskTypeConfig struct {
	Enabled bool                `json:"enabled"`
	Map     map[string][]string `json:"map"`
}

// ResourceConfig is the "resource" object of TOOL_FILTER_CONFIG.
type ResourceConfig struct {
	Enabled  bool `json:"enabled"`
	MaxTools *int `json:"maxTools"`
}

// SecurityConfig is the "security" object of TOOL_FILTER_CONFIG.
type SecurityConfig struct {
	Enabled bool     `json:"enabled"`
	Blocked []string `json:"blocked"`
}

// ConflictResolution mirrors TOOL_FILTER_CONFIG's autoEnableConflictResolution
// string enum.
type ConflictResolution string

const (
	ConflictPreferEnabled ConflictResolution = "prefer-enabled"
	ConflictFirstMatch    ConflictResolution = "first-match"
	ConflictError         ConflictResolution = "error"
)

func (c ConflictResolution) toGate() gate.ConflictPolicy {
	switch c {
	case ConflictFirstMatch:
		return gate.FirstMatch
	case ConflictError:
		return gate.ErrorOnAmbiguous
	default:
		return gate.PreferEnabled
	}
}

// FilterConfig is the exact shape spec.md §6 names TOOL_FILTER_CONFIG.
type FilterConfig struct {
	TaskType TaskTypeConfig `json:"taskType"`
	Resource ResourceConfig `json:"resource"`
	Security SecurityConfig `json:"security"`

	AutoDisableTTLMs             int                `json:"autoDisableTtlMs"`
	MaxActiveToolsets            int                `json:"maxActiveToolsets"`
	AutoEnableOnCall             bool               `json:"autoEnableOnCall"`
	AutoEnableCaseInsensitive    bool               `json:"autoEnableCaseInsensitive"`
	AutoEnableConflictResolution ConflictResolution `json:"autoEnableConflictResolution"`
	AutoEnableAllowlist          []string           `json:"autoEnableAllowlist"`
	AutoEnableBlocklist          []string           `json:"autoEnableBlocklist"`
}

// DefaultFilterConfig returns the documented default: TTL 300000ms
// (5 minutes), unlimited active toolsets, every filter disabled.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		AutoDisableTTLMs:             300000,
		MaxActiveToolsets:            0,
		AutoEnableConflictResolution: ConflictPreferEnabled,
	}
}

// Chain builds the spec.md §4.3 Filter Chain (fixed TaskType -> Resource ->
// Security order) from this config.
func (c FilterConfig) Chain() *filter.Chain {
	return filter.NewChain(
		&filter.TaskType{Enabled: c.TaskType.Enabled, Map: c.TaskType.Map},
		&filter.Resource{Enabled: c.Resource.Enabled, MaxTools: c.Resource.MaxTools},
		&filter.Security{Enabled: c.Security.Enabled, Blocked: c.Security.Blocked},
	)
}

// GateConfig builds the gate.Config this filter config implies.
func (c FilterConfig) GateConfig() gate.Config {
	return gate.Config{
		TTL:                 time.Duration(c.AutoDisableTTLMs) * time.Millisecond,
		MaxActiveToolsets:   c.MaxActiveToolsets,
		AutoEnable:          c.AutoEnableOnCall,
		AutoEnableAllowlist: c.AutoEnableAllowlist,
		AutoEnableBlocklist: c.AutoEnableBlocklist,
		CaseInsensitive:     c.AutoEnableCaseInsensitive,
		ConflictPolicy:      c.AutoEnableConflictResolution.toGate(),
	}
}

// SessionBackend selects which session.Manager implementation cmd wires up.
type SessionBackend string

const (
	SessionMemory SessionBackend = "memory"
	SessionJWT    SessionBackend = "jwt"
	SessionRedis  SessionBackend = "redis"
)

// ProxyConfig is the superset config for the whole proxy instance: backends,
// session store selection, transport listen addresses, the load balancer,
// and the embedded filter configuration.
type ProxyConfig struct {
	Filter FilterConfig `json:"filter"`

	Backends []upstream.Config `json:"backends"`

	SessionBackend  SessionBackend `json:"sessionBackend"`
	SessionIdleMs   int            `json:"sessionIdleMs"`
	MaxSessions     int            `json:"maxSessions"`
	JWTSigningKeyHex string        `json:"jwtSigningKeyHex"`
	RedisAddr       string         `json:"redisAddr"`

	HTTPListenAddr      string   `json:"httpListenAddr"`
	WebSocketListenAddr string   `json:"webSocketListenAddr"`
	BearerTokens        []string `json:"bearerTokens"`

	LoadBalancer loadbalancer.Config `json:"loadBalancer"`

	SweepIntervalMs int `json:"sweepIntervalMs"`
}

// DefaultProxyConfig returns the documented defaults: in-memory sessions,
// a 30s sweep interval (spec.md §5), and the filter defaults above.
func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		Filter:          DefaultFilterConfig(),
		SessionBackend:  SessionMemory,
		SessionIdleMs:   1800000,
		SweepIntervalMs: 30000,
		LoadBalancer: loadbalancer.Config{
			MaxRequestsPerSecond:    50,
			CircuitBreakerThreshold: 5,
			CircuitBreakerTimeout:   30 * time.Second,
			QueueCapacity:           64,
		},
	}
}
