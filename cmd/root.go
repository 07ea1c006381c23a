// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/quadstat/pkg/config"
	"github.com/Thermoquad/quadstat/pkg/log"
	"github.com/spf13/cobra"
)

var (
	configPath string

	// Overrides for config file values
	robotAddr  string
	listenAddr string
	logLevel   string
	gaitDir    string
	reconnect  bool

	// WebSocket robot flags
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "quadstat",
	Short: "Quadruped robot remote-control bridge",
	Long: `Quadstat - A bridge between a browser UI and a quadruped crawling robot.

The robot is reached over TCP (its access point, tcp://192.168.4.1:65535 by
default), a serial port, or a WebSocket-to-TCP bridge. Leg telemetry is
mirrored to the UI; while the robot is offline the bundled gait tables are
replayed locally so the UI keeps animating.

Robot addresses:
  TCP:       --robot tcp://192.168.4.1:65535
  Serial:    --robot serial:///dev/ttyUSB0?baud=115200
  WebSocket: --robot ws://host/path [--username user]

For WebSocket authentication, the password is read from the QUADSTAT_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "quadstat.yaml", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVarP(&robotAddr, "robot", "r", "", "Robot address (overrides robot.address)")
	rootCmd.PersistentFlags().StringVarP(&listenAddr, "listen", "l", "", "UI listen address (overrides server.listen)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&gaitDir, "gait-dir", "", "Directory with forward/backward/left/right.yaml gait tables")
	rootCmd.PersistentFlags().BoolVar(&reconnect, "reconnect", false, "Reconnect to the robot with exponential backoff")

	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth (ws:// robots)")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file and applies flags set on the command line
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("robot") {
		cfg.Robot.Address = robotAddr
	}
	if flags.Changed("listen") {
		cfg.Server.Listen = listenAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("gait-dir") {
		cfg.Gait.Directory = gaitDir
	}
	if flags.Changed("reconnect") {
		cfg.Robot.Reconnect = reconnect
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from config
func newLogger(cfg *config.Config) (log.Logger, error) {
	return log.New(log.Options{
		Level:   cfg.Logging.Level,
		LogPath: cfg.Logging.LogPath,
	})
}
