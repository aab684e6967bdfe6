package types

import "time"

// ServerConfig is the gateway's HTTP/WebSocket listener configuration,
// loaded by internal/config from viper and overridable by cmd/server flags.
type ServerConfig struct {
	Host          string
	Port          int
	WebSocketPath string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxConnections int
	EnableMetrics bool
	MetricsPort   int

	ProviderName   string // "rest" or "alpaca"
	ProviderAPIKey string
	ProviderAPIURL string

	DefaultTimeframe Timeframe
}
