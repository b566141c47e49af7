// Package config loads application configuration from a YAML file with
// environment-variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/cypher"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/factory"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/postgres"
)

// Detection configures the pattern-detection pipeline.
type Detection struct {
	// MinConfidence drops matches scoring below this threshold.
	MinConfidence float64 `yaml:"min_confidence"`
	// ContextWindow is the character window captured around each match.
	ContextWindow int `yaml:"context_window"`
}

// Config is the root application configuration.
type Config struct {
	Backend   factory.Config `yaml:"backend"`
	Detection Detection      `yaml:"detection"`
	LogLevel  string         `yaml:"log_level"`
}

// Default returns the configuration used when no file is given: a postgres
// backend reading its DSN from the environment.
func Default() Config {
	return Config{
		Backend: factory.Config{
			Type: factory.TypePostgres,
		},
		Detection: Detection{
			MinConfidence: 0.5,
			ContextWindow: 100,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file and applies environment overrides.
// An empty path loads defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers IB_* environment variables over the file configuration.
func applyEnv(cfg *Config) {
	if v := os.Getenv("IB_BACKEND_TYPE"); v != "" {
		cfg.Backend.Type = factory.BackendType(v)
	}
	if v := os.Getenv("IB_POSTGRES_DSN"); v != "" {
		if cfg.Backend.Postgres == nil {
			cfg.Backend.Postgres = &postgres.Config{}
		}
		cfg.Backend.Postgres.DSN = v
	}
	if v := os.Getenv("IB_NEO4J_URI"); v != "" {
		if cfg.Backend.Cypher == nil {
			cfg.Backend.Cypher = &cypher.Config{}
		}
		cfg.Backend.Cypher.URI = v
	}
	if cfg.Backend.Cypher != nil {
		if v := os.Getenv("IB_NEO4J_USERNAME"); v != "" {
			cfg.Backend.Cypher.Username = v
		}
		if v := os.Getenv("IB_NEO4J_PASSWORD"); v != "" {
			cfg.Backend.Cypher.Password = v
		}
	}
	if v := os.Getenv("IB_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detection.MinConfidence = f
		}
	}
	if v := os.Getenv("IB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
