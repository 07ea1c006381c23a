// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "tcp://192.168.4.1:65535", cfg.Robot.Address)
	assert.Equal(t, ":4200", cfg.Server.Listen)
	assert.False(t, cfg.Robot.Reconnect)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout())
	assert.Equal(t, 5*time.Second, cfg.DialTimeout())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "quadstat.yaml", `
robot:
  address: serial:///dev/ttyUSB0?baud=57600
  reconnect: true
server:
  static_dir: ./ui
gait:
  directory: ./gaits
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serial:///dev/ttyUSB0?baud=57600", cfg.Robot.Address)
	assert.True(t, cfg.Robot.Reconnect)
	assert.Equal(t, "./ui", cfg.Server.StaticDir)
	assert.Equal(t, "./gaits", cfg.Gait.Directory)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Keys not present keep their defaults
	assert.Equal(t, ":4200", cfg.Server.Listen)
	assert.Equal(t, DefaultDialTimeout, cfg.Robot.DialTimeout)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "quadstat.toml", `
[robot]
address = "ws://bridge.local:8080/robot"
write_timeout = "500ms"

[server]
listen = "127.0.0.1:9000"

[logging]
level = "warn"
log_path = "/tmp/quadstat.log"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://bridge.local:8080/robot", cfg.Robot.Address)
	assert.Equal(t, 500*time.Millisecond, cfg.WriteTimeout())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/quadstat.log", cfg.Logging.LogPath)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "quadstat.ini", "robot=1"},
		{"bad yaml", "quadstat.yaml", "robot: ["},
		{"bad toml", "quadstat.toml", "[robot"},
		{"bad scheme", "quadstat.yaml", "robot:\n  address: ftp://robot\n"},
		{"bad timeout", "quadstat.yaml", "robot:\n  write_timeout: soon\n"},
		{"negative timeout", "quadstat.yaml", "robot:\n  dial_timeout: -1s\n"},
		{"empty listen", "quadstat.yaml", "server:\n  listen: \"\"\n"},
		{"bad level", "quadstat.yaml", "logging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestDialOptions(t *testing.T) {
	cfg := Default()
	cfg.Robot.WriteTimeout = "250ms"

	opts := cfg.DialOptions()
	assert.Equal(t, 250*time.Millisecond, opts.WriteTimeout)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
}
