package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Config holds runtime settings for the gophauth CLI.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	// RequestTimeout bounds every call made to the server.
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 5 * time.Second
}

// Load constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. Later sources take precedence.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerEndpointAddr) == "" {
		return fmt.Errorf("%w: server address is empty", common.ErrMisconfigured)
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("%w: online check interval must be positive", common.ErrMisconfigured)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", common.ErrMisconfigured)
	}
	return nil
}
