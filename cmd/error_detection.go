// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/quadstat/pkg/link"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze dropped telemetry records",
	Long: `Track dropped telemetry records with statistics.

This command decodes the robot stream and reports:
  - Malformed records (not a JSON object)
  - Oversized records (no terminator within the record limit)
  - Stray status bytes (incomplete status frames)
  - Statistics and trends (frame rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid frames too.

Errors are highlighted as they arrive, with periodic statistics summaries
displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

// printDecodeError prints a dropped record in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	label := "MALFORMED RECORD"
	switch {
	case errors.Is(err, quadproto.ErrRecordOverflow):
		label = "RECORD OVERFLOW"
	case errors.Is(err, quadproto.ErrStrayStatusByte):
		label = "STRAY STATUS BYTE"
	}
	fmt.Printf("[%s] \033[1;31m%s:\033[0m %v\n\n", timestamp, label, err)
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Quadstat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if _, err := conn.Write(quadproto.NewEncoder().EnableTracking()); err != nil {
		return fmt.Errorf("failed to enable tracking: %w", err)
	}

	decoder := quadproto.NewDecoder()
	stats := quadproto.NewStatistics()

	// Sync tracking - ignore dropped records until the first valid frame
	synchronized := false
	droppedBeforeSync := 0

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking reads
	readBuf := make(chan []byte, 10)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, link.ReadBufferSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readBuf <- data
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	done := ctx.Done()
	for {
		select {
		case data := <-readBuf:
			stats.AddBytes(len(data))
			for _, r := range decoder.Feed(data) {
				if r.Err != nil {
					if !synchronized {
						droppedBeforeSync++
						continue
					}
					stats.Update(nil, r.Err)
					printDecodeError(r.Err)
					continue
				}

				if !synchronized {
					synchronized = true
					if droppedBeforeSync > 0 {
						fmt.Printf("[SYNC] Synchronized after dropping %d records\n\n", droppedBeforeSync)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				stats.Update(r.Frame, nil)
				if showAll {
					fmt.Print(quadproto.FormatFrame(r.Frame))
				}
			}

		case <-statsTicker.C:
			stats.CalculateRates()
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case err := <-readErr:
			stats.CalculateRates()
			fmt.Println()
			fmt.Print(stats.String())
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read error: %w", err)

		case <-done:
			conn.Close()
			done = nil
		}
	}
}
