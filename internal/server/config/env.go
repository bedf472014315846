package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name declared in Config's env tags,
// e.g. GOPHGUARD_DATABASE_DSN.
const EnvPrefix = "GOPHGUARD_"

// parseEnv overlays values from the environment. Unset variables leave the
// current field value untouched.
func parseEnv(config *Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
