// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads quadstat configuration from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Thermoquad/quadstat/pkg/link"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultListen       = ":4200"
	DefaultWriteTimeout = "2s"
	DefaultDialTimeout  = "5s"
	DefaultLogLevel     = "info"
)

// Config is the top-level configuration
type Config struct {
	Robot   RobotConfig   `yaml:"robot" toml:"robot" json:"robot"`
	Server  ServerConfig  `yaml:"server" toml:"server" json:"server"`
	Gait    GaitConfig    `yaml:"gait" toml:"gait" json:"gait"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
}

// RobotConfig describes the robot link
type RobotConfig struct {
	Address      string `yaml:"address" toml:"address" json:"address"`
	Reconnect    bool   `yaml:"reconnect" toml:"reconnect" json:"reconnect"`
	WriteTimeout string `yaml:"write_timeout" toml:"write_timeout" json:"write_timeout"`
	DialTimeout  string `yaml:"dial_timeout" toml:"dial_timeout" json:"dial_timeout"`
}

// ServerConfig holds the UI server settings
type ServerConfig struct {
	Listen    string `yaml:"listen" toml:"listen" json:"listen"`
	StaticDir string `yaml:"static_dir" toml:"static_dir" json:"static_dir"`
}

// GaitConfig selects where gait tables are loaded from. An empty directory
// selects the built-in tables.
type GaitConfig struct {
	Directory string `yaml:"directory" toml:"directory" json:"directory"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level" json:"level"`
	LogPath string `yaml:"log_path" toml:"log_path" json:"log_path"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			Address:      link.DefaultAddress,
			WriteTimeout: DefaultWriteTimeout,
			DialTimeout:  DefaultDialTimeout,
		},
		Server: ServerConfig{
			Listen: DefaultListen,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load reads path over the defaults. The format is chosen by extension
// (.yaml, .yml or .toml). An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .yaml or .toml)", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field that has a constrained format
func (c *Config) Validate() error {
	if _, err := link.ParseAddress(c.Robot.Address); err != nil {
		return fmt.Errorf("robot.address: %w", err)
	}
	if _, err := parsePositiveDuration(c.Robot.WriteTimeout); err != nil {
		return fmt.Errorf("robot.write_timeout: %w", err)
	}
	if _, err := parsePositiveDuration(c.Robot.DialTimeout); err != nil {
		return fmt.Errorf("robot.dial_timeout: %w", err)
	}
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("server.listen: must not be empty")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

// WriteTimeout returns the parsed robot write timeout
func (c *Config) WriteTimeout() time.Duration {
	d, _ := parsePositiveDuration(c.Robot.WriteTimeout)
	return d
}

// DialTimeout returns the parsed robot dial timeout
func (c *Config) DialTimeout() time.Duration {
	d, _ := parsePositiveDuration(c.Robot.DialTimeout)
	return d
}

// DialOptions builds the link dial options for the robot
func (c *Config) DialOptions() link.DialOptions {
	return link.DialOptions{
		DialTimeout:  c.DialTimeout(),
		WriteTimeout: c.WriteTimeout(),
	}
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
