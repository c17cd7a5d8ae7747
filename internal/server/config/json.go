package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept strings such as
// "90m" or integer nanoseconds. Absent or zero fields leave the current
// value untouched.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	StoreAdapter                 string         `json:"store_adapter"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SQLitePath                   string         `json:"sqlite_path"`
	StoreTimeout                 timex.Duration `json:"store_timeout"`
	SecretKey                    string         `json:"secret_key"`
	SigningAlgorithm             string         `json:"signing_algorithm"`
	TokenIssuer                  string         `json:"token_issuer"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordHasher               string         `json:"password_hasher"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	EmailCaseInsensitive         *bool          `json:"email_case_insensitive"`
	LogLevel                     string         `json:"log_level"`
	OTLPEndpoint                 string         `json:"otlp_endpoint"`
}

// parseJson loads the file named by -c or -config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)

	// nothing to load
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.StoreAdapter, c.StoreAdapter)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SQLitePath, c.SQLitePath)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SigningAlgorithm, c.SigningAlgorithm)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.PasswordHasher, c.PasswordHasher)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)

	if c.StoreTimeout.Duration != 0 {
		config.StoreTimeout = c.StoreTimeout.Duration
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.EmailCaseInsensitive != nil {
		config.EmailCaseInsensitive = *c.EmailCaseInsensitive
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
