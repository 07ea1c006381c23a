// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/quadstat/pkg/bridge"
	"github.com/Thermoquad/quadstat/pkg/config"
	"github.com/Thermoquad/quadstat/pkg/gait"
	"github.com/Thermoquad/quadstat/pkg/link"
	"github.com/Thermoquad/quadstat/pkg/log"
	"github.com/Thermoquad/quadstat/pkg/web"
	"github.com/spf13/cobra"
)

var (
	serveAccessLog bool
	staticDir      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the robot bridge and the browser UI",
	Long: `Connect to the robot and serve the browser UI.

The UI connects to /ws and exchanges JSON events:
  inbound:  {"event":"Forward"}, {"event":"Move X","data":-5}, ...
  outbound: {"event":"mirror","data":{...}}, {"event":"disable","data":true}

Only the most recent UI connection receives events. /api/status reports the
session, /metrics exposes Prometheus metrics and /health a liveness check.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveAccessLog, "access-log", false, "Log every HTTP request")
	serveCmd.Flags().StringVar(&staticDir, "static-dir", "", "Directory with UI assets (overrides server.static_dir)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("static-dir") {
		cfg.Server.StaticDir = staticDir
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord, runner, err := newBridge(cfg, logger)
	if err != nil {
		return err
	}

	server := web.NewServer(web.Config{
		StaticDir: cfg.Server.StaticDir,
		Gatherer:  coord.Metrics().Registry,
		Logger:    logger.WithField("component", "web"),
		AccessLog: serveAccessLog,
	}, coord)

	loopDone := make(chan error, 1)
	go func() { loopDone <- coord.Run(ctx) }()

	go func() {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("robot link stopped: %v", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Listen(cfg.Server.Listen) }()

	logger.Infof("quadstat serving UI on %s, robot %s", cfg.Server.Listen, cfg.Robot.Address)

	select {
	case <-ctx.Done():
		logger.Infof("shutting down...")
	case err := <-serveErr:
		stop()
		<-loopDone
		return fmt.Errorf("UI server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("UI server forced to shutdown: %v", err)
	}
	<-loopDone
	return nil
}

// newBridge wires the coordinator and the robot link runner
func newBridge(cfg *config.Config, logger log.Logger) (*bridge.Coordinator, *link.Runner, error) {
	gaits, err := gait.LoadSet(cfg.Gait.Directory)
	if err != nil {
		return nil, nil, err
	}

	coord, err := bridge.New(bridge.Options{
		Gaits:  gaits,
		Logger: logger.WithField("component", "bridge"),
	})
	if err != nil {
		return nil, nil, err
	}

	addr, err := robotAddress(cfg)
	if err != nil {
		return nil, nil, err
	}

	runner := link.NewRunner(link.RunnerConfig{
		Address:   addr,
		Dial:      dialOptions(cfg),
		Reconnect: cfg.Robot.Reconnect,
	}, coord, logger.WithField("component", "runner"))

	return coord, runner, nil
}
