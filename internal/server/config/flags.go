package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/echolater/internal/flagx"
)

var serverFlags = []string{
	"-l", "-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e",
	"-k", "-z", "-R", "-m", "-L",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-l string   HTTP bind address (e.g., ":8080")
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-k string   OpenAI API key
//	-z string   default IANA timezone
//	-R string   Redis URL for the token denylist
//	-m string   RabbitMQ URL for domain events
//	-L string   log level (debug, info, warn, error)
//
// os.Args is filtered with flagx.FilterArgs first so flags owned by other
// components (-c, -env) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port to listen on")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port to listen on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.OpenAIAPIKey, "k", config.OpenAIAPIKey, "OpenAI API key")
	fs.StringVar(&config.Timezone, "z", config.Timezone, "default timezone")
	fs.StringVar(&config.RedisURL, "R", config.RedisURL, "Redis URL")
	fs.StringVar(&config.RabbitMQURL, "m", config.RabbitMQURL, "RabbitMQ URL")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
