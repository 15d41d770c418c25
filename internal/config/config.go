// Package config loads process configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the process-level settings of the engine. Consensus behavior
// itself is configured through the policy file, not here.
type Config struct {
	DBPath     string `env:"CONSENSUS_DB" envDefault:"consensus.db"`
	PolicyPath string `env:"CONSENSUS_POLICY"` // empty = built-in defaults
	LogLevel   string `env:"CONSENSUS_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"CONSENSUS_LOG_FORMAT" envDefault:"text"`
}

// Parse loads configuration from the environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
