package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/echolater/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Fields left
// out of the file keep their current values.
type JsonConfig struct {
	ServerEndpointAddr string          `json:"server_endpoint_addr"`
	SessionPath        string          `json:"session_path"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	Timezone           string          `json:"timezone"`
}

// LoadJSON overlays c with the values found in the JSON file at path.
func (c *Config) LoadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != "" {
		c.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.SessionPath != "" {
		c.SessionPath = jc.SessionPath
	}
	if jc.RequestTimeout != nil {
		c.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.Timezone != "" {
		c.Timezone = jc.Timezone
	}
	return nil
}
