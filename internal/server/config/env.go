package config

import (
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/echolater/internal/flagx"
	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for godotenv.Load.
var loadDotEnv = godotenv.Load

// parseEnv overlays Config with process environment variables. A dotenv file
// given with -env/-E is loaded first; otherwise ./.env is loaded when present.
// Variables already set in the environment win over the file.
//
// Recognised variables:
//
//	ECHOLATER_HTTP_ADDR, ECHOLATER_GRPC_ADDR, DATABASE_URL, ECHOLATER_SECRET_KEY,
//	ECHOLATER_ACCESS_TOKEN_TTL, ECHOLATER_REFRESH_TOKEN_TTL (Go durations),
//	S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, S3_REGION, S3_ENDPOINT,
//	OPENAI_API_KEY, OPENAI_BASE_URL, ECHOLATER_TRANSCRIPTION_MODEL,
//	ECHOLATER_TRANSCRIPTION_LANGUAGE, REDIS_URL, RABBITMQ_URL,
//	ECHOLATER_TIMEZONE, LOG_LEVEL, LOG_FORMAT, CORS_ORIGINS (comma separated).
func parseEnv(config *Config) {
	if file := flagx.EnvFileFlags(); file != "" {
		if err := loadDotEnv(file); err != nil {
			panic(err)
		}
	} else {
		// optional
		_ = loadDotEnv()
	}

	setString(&config.EndpointAddrHTTP, "ECHOLATER_HTTP_ADDR")
	setString(&config.EndpointAddrGRPC, "ECHOLATER_GRPC_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_URL")
	setString(&config.SecretKey, "ECHOLATER_SECRET_KEY")
	setDuration(&config.AccessTokenValidityDuration, "ECHOLATER_ACCESS_TOKEN_TTL")
	setDuration(&config.RefreshTokenValidityDuration, "ECHOLATER_REFRESH_TOKEN_TTL")
	setString(&config.S3RootUser, "S3_ACCESS_KEY")
	setString(&config.S3RootPassword, "S3_SECRET_KEY")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	setString(&config.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&config.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&config.TranscriptionModel, "ECHOLATER_TRANSCRIPTION_MODEL")
	setString(&config.TranscriptionLanguage, "ECHOLATER_TRANSCRIPTION_LANGUAGE")
	setString(&config.RedisURL, "REDIS_URL")
	setString(&config.RabbitMQURL, "RABBITMQ_URL")
	setString(&config.Timezone, "ECHOLATER_TIMEZONE")
	setString(&config.LogLevel, "LOG_LEVEL")
	setString(&config.LogFormat, "LOG_FORMAT")

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
