package config

import "time"

type Config struct {
	Log       LogConfig
	Server    ServerConfig
	Transport TransportConfig
	Queue     QueueConfig
	Status    StatusConfig
	Database  DatabaseConfig
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Address         string
	Auth            AuthConfig
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
	// RequireWalletSignature additionally binds the token to the claimed
	// wallet address via an X-Wallet-Signature header at connect time.
	RequireWalletSignature bool `mapstructure:"requireWalletSignature"`
}

type ConnectionLimitConfig struct {
	MaxPerUser int    `mapstructure:"maxPerUser"`
	Mode       string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	PingInterval time.Duration `mapstructure:"pingInterval"`
	PingTimeout  time.Duration `mapstructure:"pingTimeout"`
}

type QueueConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	InitialBackoff time.Duration `mapstructure:"initialBackoff"`
	StallTimeout   time.Duration `mapstructure:"stallTimeout"`
}

type StatusConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type DatabaseConfig struct {
	// DSN of the proof-job store. Empty means run with the in-memory store
	// (failed jobs are then lost on restart).
	DSN string `mapstructure:"dsn"`
}
