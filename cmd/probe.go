// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/quadstat/pkg/link"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
	"github.com/spf13/cobra"
)

var (
	probeTimeout int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test the robot link by waiting for a valid frame",
	Long: `Wait for a valid robot frame on the connection until timeout.

This command connects to the robot, enables tracking and waits for any valid
frame: a parseable telemetry record or a gait-cycle completion. Dropped
records are counted but do not end the wait.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	timeout := time.Duration(probeTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Quadstat - Link Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for a valid frame...\n\n")

	if _, err := conn.Write(quadproto.NewEncoder().EnableTracking()); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(2)
	}

	frameChan := make(chan *quadproto.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		decoder := quadproto.NewDecoder()
		buf := make([]byte, link.ReadBufferSize)
		dropped := 0
		for {
			n, err := conn.Read(buf)
			for _, r := range decoder.Feed(buf[:n]) {
				if r.Err != nil {
					dropped++
					continue
				}
				if dropped > 0 {
					fmt.Printf("(dropped %d records before the first valid frame)\n", dropped)
				}
				frameChan <- r.Frame
				return
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Kind: %s\n", frame.Kind())
		if frame.Kind() == quadproto.FrameTelemetry {
			fmt.Printf("  Record: %d bytes, %d fields\n", len(frame.Raw()), len(frame.Snapshot()))
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-ctx.Done():
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", probeTimeout)
		os.Exit(1)
	}

	return nil
}
