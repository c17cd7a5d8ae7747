package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var serverFlags = []string{"-a", "-w", "-m", "-d", "-l", "-s", "-t", "-r", "-x", "-v", "-o"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-w string   HTTP bind address (e.g., ":8080")
//	-m string   store adapter: postgres, sqlite or memory
//	-d string   PostgreSQL DSN
//	-l string   SQLite database file
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-x string   password hasher: bcrypt or argon2id
//	-v string   log level
//	-o string   OTLP/HTTP trace endpoint
//
// Duration flags are integers in minutes.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("gophauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.StoreAdapter, "m", config.StoreAdapter, "store adapter")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SQLitePath, "l", config.SQLitePath, "sqlite database file")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.PasswordHasher, "x", config.PasswordHasher, "password hasher")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.StringVar(&config.OTLPEndpoint, "o", config.OTLPEndpoint, "OTLP endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	visited := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { visited[f.Name] = true })
	if visited["t"] {
		config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	}
	if visited["r"] {
		config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	}
	return nil
}
