// Package config loads the daemon configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"remotecmd/session"
)

// Config aggregates the daemon's settings.
type Config struct {
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Limits  Limits  `yaml:"limits"`
	Metrics Metrics `yaml:"metrics"`
}

// Server holds the connection parameters.
type Server struct {
	Address string `yaml:"address"` // "*" binds all interfaces
	Port    int    `yaml:"port"`
	Secret  string `yaml:"secret"`
}

// Logging holds output options.
type Logging struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"filePath"`
	FileMaxSizeMB int    `yaml:"fileMaxSizeMB"`
}

// Limits throttles request dispatch.
type Limits struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"` // 0 disables the limiter
	Burst             int     `yaml:"burst"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server:  Server{Address: "*", Port: session.DefaultPort},
		Metrics: Metrics{Listen: "localhost:9464"},
	}
}

// Load reads a YAML configuration from path, applied over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Limits.RequestsPerSecond < 0 {
		return fmt.Errorf("config: limits.requestsPerSecond must not be negative")
	}
	if cfg.Limits.RequestsPerSecond > 0 && cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = 1
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("config: metrics.listen required when metrics are enabled")
	}
	return nil
}
