// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"time"
)

// Status is a point-in-time view of the session
type Status struct {
	Link      string `json:"link"`
	LinkInfo  string `json:"link_info,omitempty"`
	Crawling  bool   `json:"crawling"`
	Direction string `json:"direction"`
	Sequencer string `json:"sequencer"`
	Cursor    int    `json:"cursor"`
	GaitTicks uint64 `json:"gait_ticks"`
	Client    string `json:"client,omitempty"`

	Sent       uint64 `json:"sent"`
	Suppressed uint64 `json:"suppressed"`

	BytesReceived    uint64 `json:"bytes_received"`
	TelemetryFrames  uint64 `json:"telemetry_frames"`
	CycleCompletes   uint64 `json:"cycle_completes"`
	MalformedRecords uint64 `json:"malformed_records"`
	OverflowRecords  uint64 `json:"overflow_records"`
	StrayBytes       uint64 `json:"stray_bytes"`

	Uptime string `json:"uptime"`
}

// Status queries the loop for a snapshot of the session
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if !c.post(func() { reply <- c.status() }) {
		return Status{}, ErrStopped
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-c.done:
		return Status{}, ErrStopped
	}
}

func (c *Coordinator) status() Status {
	stats := c.session.Statistics()

	s := Status{
		Link:      c.session.State().String(),
		LinkInfo:  c.session.Info(),
		Crawling:  c.crawling,
		Direction: c.direction.String(),
		Sequencer: "idle",
		Cursor:    c.seq.Cursor(),
		GaitTicks: c.seq.Ticks(),

		Sent:       c.session.Sent(),
		Suppressed: c.session.Suppressed(),

		BytesReceived:    stats.BytesReceived,
		TelemetryFrames:  stats.TelemetryFrames,
		CycleCompletes:   stats.CycleCompletes,
		MalformedRecords: stats.MalformedRecords,
		OverflowRecords:  stats.OverflowRecords,
		StrayBytes:       stats.StrayBytes,

		Uptime: time.Since(c.started).Round(time.Second).String(),
	}
	if c.seq.Active() {
		s.Sequencer = "active"
	}
	if c.client != nil {
		s.Client = c.client.ID()
	}
	return s
}
