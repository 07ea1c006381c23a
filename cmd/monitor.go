// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/Thermoquad/quadstat/pkg/bridge"
	"github.com/Thermoquad/quadstat/pkg/log"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const monitorClientID = "monitor"

var monitorPlain bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for driving the robot from the terminal",
	Long: `Drive the robot from a terminal UI instead of the browser.

The monitor runs the same bridge as "serve" and registers itself as the UI
client, so mirrored leg positions come from robot telemetry when connected
and from the local gait replay otherwise.

Keys:
  arrows   crawl forward/backward/left/right
  space    stretch (stop and reset posture)
  z / x    raise / lower the body (Move Z)
  ?        toggle full help
  q        quit

When stdout is not a terminal (or with --plain) events are printed as lines.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorPlain, "plain", false, "Print events as text instead of the TUI")
}

// tuiClient is the bridge client for the terminal UI. Events are queued and
// forwarded by a single goroutine so their order is preserved.
type tuiClient struct {
	events chan bridgeEventMsg
}

func newTUIClient() *tuiClient {
	return &tuiClient{events: make(chan bridgeEventMsg, 256)}
}

func (c *tuiClient) ID() string {
	return monitorClientID
}

// Emit never blocks the bridge loop; events are dropped when the queue is full
func (c *tuiClient) Emit(event string, data interface{}) {
	select {
	case c.events <- bridgeEventMsg{event: event, data: data}:
	default:
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	plain := monitorPlain || !term.IsTerminal(int(os.Stdout.Fd()))

	// The TUI owns the terminal; log lines only go to the log file
	var console io.Writer = io.Discard
	if plain {
		console = os.Stderr
	}
	logger, err := log.New(log.Options{
		Level:   cfg.Logging.Level,
		LogPath: cfg.Logging.LogPath,
		Output:  console,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	coord, runner, err := newBridge(cfg, logger)
	if err != nil {
		return err
	}

	loopDone := make(chan error, 1)
	go func() { loopDone <- coord.Run(ctx) }()
	go func() {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("robot link stopped: %v", err)
		}
	}()

	client := newTUIClient()
	coord.Register(client)

	if plain {
		err = runPlainMonitor(ctx, client)
	} else {
		err = runTUIMonitor(ctx, coord, client, cfg.Robot.Address)
	}

	stop()
	<-loopDone
	return err
}

func runTUIMonitor(ctx context.Context, coord *bridge.Coordinator, client *tuiClient, robot string) error {
	p := tea.NewProgram(initialMonitorModel(coord, robot), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		for {
			select {
			case ev := <-client.events:
				p.Send(ev)
			case <-ctx.Done():
				return
			}
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

func runPlainMonitor(ctx context.Context, client *tuiClient) error {
	fmt.Printf("Quadstat - Monitor (press Ctrl+C to exit)\n\n")
	for {
		select {
		case ev := <-client.events:
			fmt.Print(formatBridgeEvent(ev))
		case <-ctx.Done():
			return nil
		}
	}
}

func formatBridgeEvent(ev bridgeEventMsg) string {
	if snap, ok := ev.data.(quadproto.Snapshot); ok {
		return fmt.Sprintf("%s\n%s", ev.event, quadproto.FormatSnapshot(snap))
	}
	return fmt.Sprintf("%s %v\n", ev.event, ev.data)
}
