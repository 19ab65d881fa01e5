package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the immutable configuration of the mirror. It is built once
// before the ledger connection and passed to constructors.
type Config struct {
	// RPC endpoint of the ledger node (http or https)
	RPCServerURL string `env:"APP_RPC_URL"`

	// Address of the campaign registry contract, with or without 0x
	ContractAddress string `env:"APP_CONTRACT_ADDRESS"`

	// Node-managed account createCampaign calls are sent from
	SenderAddress string `env:"APP_SENDER_ADDRESS"`

	// Concurrent indexed reads per fetch sequence ( 1 means sequential )
	FetchWorkers int `env:"APP_FETCH_WORKERS" envDefault:"1"`

	// Sessions idle longer than this are dropped
	SessionIdleTimeout time.Duration `env:"APP_SESSION_IDLE_TIMEOUT" envDefault:"30m"`

	HTTP HTTP   `envPrefix:"HTTP_"`
	Log  Logger `envPrefix:"LOG_"`
}

// HTTP configures the API server
type HTTP struct {
	Port         uint16        `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"0s"`
}

// Logger configures the slog handler
type Logger struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load reads the configuration from the process environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads the configuration from environ instead of the process
// environment
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.RPCServerURL == "" {
		return fmt.Errorf("APP_RPC_URL is required")
	}
	if _, err := url.Parse(c.RPCServerURL); err != nil {
		return fmt.Errorf("APP_RPC_URL is not a valid url: %w", err)
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("APP_CONTRACT_ADDRESS is required")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("APP_CONTRACT_ADDRESS %q is not a hex address", c.ContractAddress)
	}
	if c.SenderAddress == "" {
		return fmt.Errorf("APP_SENDER_ADDRESS is required")
	}
	if !common.IsHexAddress(c.SenderAddress) {
		return fmt.Errorf("APP_SENDER_ADDRESS %q is not a hex address", c.SenderAddress)
	}
	if c.FetchWorkers < 0 {
		return fmt.Errorf("APP_FETCH_WORKERS must not be negative")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("APP_SESSION_IDLE_TIMEOUT must be positive")
	}
	return nil
}

// SlogLevel converts the textual level into a slog.Level. Unknown levels
// default to slog.LevelInfo.
func (c Logger) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogFormat returns "json" or "text"
func (c Logger) SlogFormat() string {
	if strings.ToLower(c.Format) == "json" {
		return "json"
	}
	return "text"
}
