// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Quadstat - Quadruped Robot Remote-Control Bridge
//
// Bridges a browser or terminal UI to a crawling quadruped robot over TCP,
// serial or WebSocket, mirroring leg telemetry and replaying gait tables
// while the robot is offline.

package main

import (
	"os"

	"github.com/Thermoquad/quadstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
