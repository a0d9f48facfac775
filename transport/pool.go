package transport

import (
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// PoolConfig tunes the pooled *http.Client transports share. Adapted from
// the teacher's pool.PoolConfig (pool/pool.go), dropping its
// package-level singleton (SetPool/GetPool/sync.Once) in favor of
// constructor-based injection — every HTTP transport is handed its own
// *Pool rather than reaching for a global.
type PoolConfig struct {
	InsecureSkipVerify  bool
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Timeout             time.Duration
}

// DefaultPoolConfig returns sensible, secure-by-default settings sized for
// long-lived MCP backend connections.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		InsecureSkipVerify:  false,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		Timeout:             5 * time.Minute,
	}
}

// Pool owns one pooled *http.Client with HTTP/2 support.
type Pool struct {
	client *http.Client
}

// NewPool builds a Pool from cfg. HTTP/2 is configured via
// golang.org/x/net/http2 so a single connection can multiplex concurrent
// backend calls.
func NewPool(cfg PoolConfig) *Pool {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}
	_ = http2.ConfigureTransport(transport)

	return &Pool{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Client returns the pooled *http.Client.
func (p *Pool) Client() *http.Client {
	return p.client
}
