// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package quadproto implements the wire protocol spoken by the Freenove quadruped
// robot controller.
//
// Outbound commands are short fixed-length binary frames bracketed by a header byte
// and a terminator byte. Inbound traffic is a mix of 2-byte status frames and
// semicolon-delimited JSON telemetry records describing leg positions. This package
// provides the command encoder, an incremental decoder that tolerates TCP
// fragmentation, and formatting helpers for logs.
package quadproto

// Command framing bytes
const (
	HeaderByte     = 0x80
	TerminatorByte = 0x81
	// Rotate frames are terminated with the header byte
	RotateTerminatorByte = 0x80
)

// Command codes (byte 1 of an outbound frame)
const (
	CmdForward  = 0x40
	CmdBackward = 0x42
	CmdLeft     = 0x44
	CmdRight    = 0x46
	CmdActivate = 0x48 // Also stops crawling
	CmdTracking = 0x2B
	CmdMove     = 0x64
	CmdRotate   = 0x66
)

// Frame sizes
const (
	CrawlFrameSize    = 3
	TrackingFrameSize = 3
	MoveFrameSize     = 6
	RotateFrameSize   = 5
)

// Axis values are biased by AxisCenter before being written to the wire.
const (
	AxisCenter    = 64
	MinAxisOffset = -64
	MaxAxisOffset = 63
)

// Inbound framing
const (
	RecordStart     = '{'
	RecordDelimiter = ';'
	StatusCycleDone = 23 // byte[1] of a status frame when a gait cycle completed
	StatusFrameSize = 2

	// MaxRecordSize bounds the accumulator when a delimiter never arrives
	MaxRecordSize = 4096
)

// Default robot endpoint (the robot's access point address)
const (
	DefaultRobotHost = "192.168.4.1"
	DefaultRobotPort = 65535
)
