package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"
)

// Config holds runtime settings for the EchoLater CLI.
type Config struct {
	// ServerEndpointAddr is host:port of the backend gRPC endpoint.
	ServerEndpointAddr string
	// SessionPath is the SQLite file holding the login session. A leading
	// "~" is expanded when the database is opened.
	SessionPath    string
	RequestTimeout time.Duration
	// Timezone is the IANA name sent with requests; empty means the
	// server's default zone.
	Timezone string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SessionPath = "~/.echolater/session.db"
	c.RequestTimeout = 30 * time.Second
	c.Timezone = os.Getenv("TZ")
}

// Validate checks values that would otherwise only fail deep inside a call.
func (c *Config) Validate() error {
	if c.ServerEndpointAddr == "" {
		return fmt.Errorf("server address is empty")
	}
	if c.SessionPath == "" {
		return fmt.Errorf("session path is empty")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// Load applies defaults and then the JSON file at path, if any. Flags are
// layered on top by the caller.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}
	if err := cfg.LoadJSON(path); err != nil {
		return nil, err
	}
	return cfg, nil
}
