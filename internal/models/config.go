package models

import "time"

// Config represents the application configuration
type Config struct {
	Api      ApiConfig
	Auth     AuthConfig
	Chain    ChainConfig
	Database DatabaseConfig
	Transfer TransferConfig
}

// ApiConfig holds widget API connection settings
type ApiConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig selects the authentication strategy
type AuthConfig struct {
	Strategy StrategyKind
	// AppId is the hosted-custody tenant id owned by Glyph itself
	AppId string
}

// ChainConfig identifies the chain transfers target
type ChainConfig struct {
	ChainId    uint64
	RpcURL     string
	ChainsFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// TransferConfig holds send-funds timing settings
type TransferConfig struct {
	QuoteInterval      time.Duration
	QuoteDebounce      time.Duration
	StatusPollInterval time.Duration
}
