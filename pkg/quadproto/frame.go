// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package quadproto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FrameKind identifies a decoded inbound frame
type FrameKind int

const (
	FrameTelemetry FrameKind = iota
	FrameCycleComplete
)

func (k FrameKind) String() string {
	switch k {
	case FrameTelemetry:
		return "TELEMETRY"
	case FrameCycleComplete:
		return "CYCLE_COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is one leg-position telemetry record as sent by the robot. The robot
// firmware defines the keys; the bridge mirrors them to the UI untouched.
type Snapshot map[string]interface{}

// Frame is one decoded inbound frame
type Frame struct {
	kind      FrameKind
	snapshot  Snapshot
	raw       []byte
	timestamp time.Time
}

// NewTelemetryFrame creates a telemetry frame from an already decoded snapshot
func NewTelemetryFrame(s Snapshot) *Frame {
	return &Frame{kind: FrameTelemetry, snapshot: s, timestamp: time.Now()}
}

// NewCycleCompleteFrame creates a cycle-complete status frame
func NewCycleCompleteFrame() *Frame {
	return &Frame{kind: FrameCycleComplete, timestamp: time.Now()}
}

// Kind returns the frame kind
func (f *Frame) Kind() FrameKind {
	return f.kind
}

// Snapshot returns the decoded telemetry (nil for status frames)
func (f *Frame) Snapshot() Snapshot {
	return f.snapshot
}

// Raw returns the record bytes without the delimiter (nil for status frames)
func (f *Frame) Raw() []byte {
	return f.raw
}

// Timestamp returns the frame's decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Record decode errors
var (
	ErrMalformedRecord = errors.New("quadproto: malformed telemetry record")
	ErrRecordOverflow  = errors.New("quadproto: telemetry record exceeds max size")
	ErrStrayStatusByte = errors.New("quadproto: incomplete status frame")
)

// RecordError describes a telemetry record that was dropped
type RecordError struct {
	Err    error  // ErrMalformedRecord or ErrRecordOverflow
	Record []byte // offending bytes (truncated for overflow)
	Cause  error  // underlying JSON error, if any
}

func (e *RecordError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v (%q)", e.Err, e.Cause, preview(e.Record))
	}
	return fmt.Sprintf("%v (%q)", e.Err, preview(e.Record))
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ParseRecord decodes one telemetry record (without its delimiter) into a snapshot.
// A record must be a single JSON object.
func ParseRecord(record []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(record)
	if len(trimmed) == 0 || trimmed[0] != RecordStart {
		return nil, &RecordError{Err: ErrMalformedRecord, Record: record}
	}

	var s Snapshot
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, &RecordError{Err: ErrMalformedRecord, Record: record, Cause: err}
	}
	return s, nil
}

func preview(b []byte) string {
	const max = 48
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
