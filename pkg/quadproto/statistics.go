// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package quadproto

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks inbound frame counts and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	TelemetryFrames  uint64
	CycleCompletes   uint64
	MalformedRecords uint64
	OverflowRecords  uint64
	StrayBytes       uint64
	BytesReceived    uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// AddBytes records raw bytes received from the transport
func (s *Statistics) AddBytes(n int) {
	s.BytesReceived += uint64(n)
}

// Update updates statistics with one decode result
func (s *Statistics) Update(frame *Frame, decodeErr error) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		switch {
		case errors.Is(decodeErr, ErrRecordOverflow):
			s.OverflowRecords++
		case errors.Is(decodeErr, ErrStrayStatusByte):
			s.StrayBytes++
		default:
			s.MalformedRecords++
		}
		return
	}

	if frame == nil {
		return
	}
	switch frame.Kind() {
	case FrameTelemetry:
		s.TelemetryFrames++
	case FrameCycleComplete:
		s.CycleCompletes++
	}
}

// Errors returns the total number of dropped records and stray bytes
func (s *Statistics) Errors() uint64 {
	return s.MalformedRecords + s.OverflowRecords + s.StrayBytes
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.TelemetryFrames+s.CycleCompletes) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.TelemetryFrames+s.CycleCompletes, validPercent)
	result += fmt.Sprintf("  Telemetry:        %5d\n", s.TelemetryFrames)
	result += fmt.Sprintf("  Cycle Complete:   %5d\n", s.CycleCompletes)

	if s.MalformedRecords > 0 {
		result += fmt.Sprintf("Malformed:       %8d\n", s.MalformedRecords)
	}
	if s.OverflowRecords > 0 {
		result += fmt.Sprintf("Overflows:       %8d\n", s.OverflowRecords)
	}
	if s.StrayBytes > 0 {
		result += fmt.Sprintf("Stray Bytes:     %8d\n", s.StrayBytes)
	}

	result += fmt.Sprintf("Bytes Received:  %8d\n", s.BytesReceived)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
