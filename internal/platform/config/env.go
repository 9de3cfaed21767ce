// Package config loads command configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Prefix is shared by every environment variable the commands read.
const Prefix = "DOUDIZHU_"

// ParseEnv loads configuration from environment variables into target, a
// pointer to a struct tagged with `env` and `envDefault`.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
