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

	"github.com/Thermoquad/quadstat/pkg/link"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
	"github.com/spf13/cobra"
)

var (
	rawLogNoTracking bool
	rawLogStats      bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded robot frames in human-readable format",
	Long: `Continuously decode and display robot frames as they arrive.

Each leg telemetry record and gait-cycle completion is printed with a
timestamp. Dropped records are printed as errors. Tracking is enabled on
connect so the robot starts streaming telemetry.

Supports TCP, serial and WebSocket robot addresses.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogNoTracking, "no-tracking", false, "Do not send the enable-tracking command on connect")
	rawLogCmd.Flags().BoolVar(&rawLogStats, "stats", false, "Print frame statistics on exit")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Quadstat - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if !rawLogNoTracking {
		enc := quadproto.NewEncoder()
		if _, err := conn.Write(enc.EnableTracking()); err != nil {
			return fmt.Errorf("failed to enable tracking: %w", err)
		}
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	decoder := quadproto.NewDecoder()
	stats := quadproto.NewStatistics()
	buf := make([]byte, link.ReadBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			stats.AddBytes(n)
			for _, r := range decoder.Feed(buf[:n]) {
				stats.Update(r.Frame, r.Err)
				if r.Err != nil {
					fmt.Printf("[ERROR] %v\n", r.Err)
					continue
				}
				fmt.Print(quadproto.FormatFrame(r.Frame))
			}
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, link.ErrConnectionClosed) {
				fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			} else {
				fmt.Println("Connection closed")
			}
			break
		}
	}

	if rawLogStats {
		stats.CalculateRates()
		fmt.Print(stats.String())
	}
	return nil
}
