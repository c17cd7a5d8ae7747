package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays GOPHAUTH_* variables. Unset variables leave the field
// as it is.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
