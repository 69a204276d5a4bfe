// Package config loads toolkit configuration from YAML files with
// environment variable expansion. A .env file alongside the process is
// honored before expansion so local development matches deployment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lcagent/lcagent/logging"
	"github.com/lcagent/lcagent/network"
	"github.com/lcagent/lcagent/route"
)

// Config holds toolkit-wide settings.
type Config struct {
	// ChatModelName is the registry name of the default chat model.
	ChatModelName string `yaml:"chat_model"`

	// MaxIterations caps fixpoint passes per network evaluation.
	MaxIterations int `yaml:"max_iterations"`

	// MaxRetries bounds corrective rounds injected by retry modifiers.
	MaxRetries int `yaml:"max_retries"`

	// Profiling enables the process-wide profiling switch.
	Profiling bool `yaml:"profiling"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is json or text.
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		MaxIterations: network.DefaultMaxIterations,
		MaxRetries:    route.DefaultMaxRetries,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// Load reads a YAML config file, expanding ${VAR} and ${VAR:-default}
// references from the environment. A .env file in the working directory is
// loaded first when present. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	// Best effort: absence of a .env file is the normal case.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnv substitutes ${VAR} and ${VAR:-default} references. Unset
// variables without a default expand to the empty string.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		groups := envRef.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(groups[1]); ok {
			return v
		}
		return groups[3]
	})
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// LoggerConfig maps the config onto the logging package's configuration.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Format = strings.ToLower(c.LogFormat)
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		cfg.Level = logging.LogLevelDebug
	case "warn":
		cfg.Level = logging.LogLevelWarn
	case "error":
		cfg.Level = logging.LogLevelError
	default:
		cfg.Level = logging.LogLevelInfo
	}
	return cfg
}
