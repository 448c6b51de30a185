package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/echolater/internal/flagx"
	"github.com/dmitrijs2005/echolater/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Omitted or empty fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	OpenAIAPIKey                 string         `json:"openai_api_key"`
	OpenAIBaseURL                string         `json:"openai_base_url"`
	TranscriptionModel           string         `json:"transcription_model"`
	TranscriptionLanguage        string         `json:"transcription_language"`
	RedisURL                     string         `json:"redis_url"`
	RabbitMQURL                  string         `json:"rabbitmq_url"`
	Timezone                     string         `json:"timezone"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
	CORSOrigins                  []string       `json:"cors_origins"`
}

// parseJson loads configuration values from the file named by -c/-config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON
// panics, as a broken config must stop the server at startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	overlay(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	overlay(&config.TranscriptionModel, c.TranscriptionModel)
	overlay(&config.TranscriptionLanguage, c.TranscriptionLanguage)
	overlay(&config.RedisURL, c.RedisURL)
	overlay(&config.RabbitMQURL, c.RabbitMQURL)
	overlay(&config.Timezone, c.Timezone)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.LogFormat, c.LogFormat)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
