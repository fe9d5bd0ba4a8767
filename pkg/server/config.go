package server

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort and MaxPort bound the accepted listen port range.
	MinPort = 1024
	MaxPort = 65535

	// DefaultPort is used when no port is configured.
	DefaultPort = 1500
)

// Config holds server configuration.
type Config struct {
	Host         string // bind host (empty = all interfaces)
	Port         int    // TCP listen port (default 1500, valid 1024-65535)
	DBPath       string // SQLite history database path
	BadWordsFile string // line-delimited bad-word list (empty = filtering disabled)
	MetricsAddr  string // HTTP bind address for /metrics endpoint (empty = disabled)

	// CLI-only action (run and exit)
	ExportHistory bool // export the chat history as YAML and exit
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:   DefaultPort,
		DBPath: "chatroom.db",
	}
}

// Addr returns the TCP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.Port < MinPort || c.Port > MaxPort {
		return fmt.Errorf("server: invalid port %d: must be between %d and %d", c.Port, MinPort, MaxPort)
	}
	if c.DBPath == "" {
		return fmt.Errorf("server: history database path must not be empty")
	}
	return nil
}

// fileConfig mirrors Config for the optional YAML config file. Pointer fields
// distinguish "absent" from zero values so flags keep their defaults.
type fileConfig struct {
	Host         *string `yaml:"host,omitempty"`
	Port         *int    `yaml:"port,omitempty"`
	DBPath       *string `yaml:"db_path,omitempty"`
	BadWordsFile *string `yaml:"bad_words_file,omitempty"`
	MetricsAddr  *string `yaml:"metrics_addr,omitempty"`
}

// LoadConfigFile overlays settings from a YAML file onto cfg.
// Missing keys leave the corresponding field untouched.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return fmt.Errorf("server: read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("server: parse config: %w", err)
	}

	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.BadWordsFile != nil {
		cfg.BadWordsFile = *fc.BadWordsFile
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
	}
	return nil
}
