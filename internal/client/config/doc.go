// Package config loads runtime configuration for the EchoLater CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config / -c (see LoadJSON).
//  3. Command-line flags, applied by the cli package on top of the result.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "session_path": "~/.echolater/session.db",
//	  "request_timeout": "30s",
//	  "timezone": "Asia/Shanghai"
//	}
package config
