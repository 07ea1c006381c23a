// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the coordinator's Prometheus collectors
type Metrics struct {
	Registry *prometheus.Registry

	frames     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	commands   *prometheus.CounterVec
	uiEvents   *prometheus.CounterVec
	sent       prometheus.Counter
	suppressed prometheus.Counter
	gaitTicks  prometheus.Counter
	linkUp     prometheus.Gauge
	uiClient   prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quadstat_frames_total",
				Help: "Frames decoded from the robot",
			},
			[]string{"kind"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quadstat_dropped_records_total",
				Help: "Telemetry records dropped by the decoder",
			},
			[]string{"reason"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quadstat_ui_commands_total",
				Help: "Commands received from the UI",
			},
			[]string{"command"},
		),
		uiEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quadstat_ui_events_total",
				Help: "Events emitted to the UI client",
			},
			[]string{"event"},
		),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quadstat_robot_writes_total",
			Help: "Frames written to the robot",
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quadstat_robot_writes_suppressed_total",
			Help: "Writes dropped because the robot was offline",
		}),
		gaitTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quadstat_gait_ticks_total",
			Help: "Snapshots replayed by the local gait sequencer",
		}),
		linkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quadstat_link_up",
			Help: "1 while the robot link is connected",
		}),
		uiClient: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quadstat_ui_client_registered",
			Help: "1 while a UI client is registered",
		}),
	}

	m.Registry.MustRegister(
		m.frames, m.dropped, m.commands, m.uiEvents,
		m.sent, m.suppressed, m.gaitTicks, m.linkUp, m.uiClient,
	)
	return m
}

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
