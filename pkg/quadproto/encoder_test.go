// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package quadproto

import (
	"bytes"
	"testing"
)

func TestEncoder_InitialBuffers(t *testing.T) {
	e := NewEncoder()

	tests := []struct {
		name     string
		got      []byte
		expected []byte
	}{
		{"crawl", e.CrawlFrame(), []byte{0x80, 0x48, 0x81}},
		{"tracking", e.EnableTracking(), []byte{0x80, 0x2B, 0x81}},
		{"move", e.Move(0, 0, 0), []byte{0x80, 0x64, 64, 64, 64, 0x81}},
		{"rotate", e.Rotate(0, 0), []byte{0x80, 0x66, 64, 64, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.expected) {
				t.Errorf("expected % X, got % X", tt.expected, tt.got)
			}
		})
	}
}

func TestEncoder_Crawl(t *testing.T) {
	tests := []struct {
		name string
		code byte
	}{
		{"forward", CmdForward},
		{"backward", CmdBackward},
		{"left", CmdLeft},
		{"right", CmdRight},
		{"activate", CmdActivate},
	}

	e := NewEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := e.Crawl(tt.code)
			expected := []byte{HeaderByte, tt.code, TerminatorByte}
			if !bytes.Equal(frame, expected) {
				t.Errorf("expected % X, got % X", expected, frame)
			}
		})
	}
}

func TestEncoder_Activate(t *testing.T) {
	e := NewEncoder()
	e.Crawl(CmdForward)

	frame := e.Activate()
	if !bytes.Equal(frame, []byte{0x80, 0x48, 0x81}) {
		t.Errorf("activate frame = % X", frame)
	}
}

func TestEncoder_MoveReflectsLatestValues(t *testing.T) {
	e := NewEncoder()

	frame := e.Move(10, -5, 0)
	if frame[2] != 74 || frame[3] != 59 || frame[4] != 64 {
		t.Errorf("first move: expected 74 59 64, got %d %d %d", frame[2], frame[3], frame[4])
	}

	frame = e.Move(0, 3, -1)
	if frame[2] != 64 || frame[3] != 67 || frame[4] != 63 {
		t.Errorf("second move: expected 64 67 63, got %d %d %d", frame[2], frame[3], frame[4])
	}
	if frame[0] != HeaderByte || frame[1] != CmdMove || frame[5] != TerminatorByte {
		t.Errorf("framing corrupted: % X", frame)
	}
}

func TestEncoder_MoveAxis(t *testing.T) {
	tests := []struct {
		name     string
		axis     Axis
		offset   int
		expected []byte
	}{
		{"x", AxisX, 5, []byte{0x80, 0x64, 69, 64, 64, 0x81}},
		{"y", AxisY, -7, []byte{0x80, 0x64, 64, 57, 64, 0x81}},
		{"z", AxisZ, 20, []byte{0x80, 0x64, 64, 64, 84, 0x81}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder()
			frame, err := e.MoveAxis(tt.axis, tt.offset)
			if err != nil {
				t.Fatalf("MoveAxis failed: %v", err)
			}
			if !bytes.Equal(frame, tt.expected) {
				t.Errorf("expected % X, got % X", tt.expected, frame)
			}
		})
	}

	e := NewEncoder()
	if _, err := e.MoveAxis(Axis(7), 1); err == nil {
		t.Error("expected error for invalid axis")
	}
}

func TestEncoder_RotateAxis(t *testing.T) {
	e := NewEncoder()

	frame, err := e.RotateAxis(AxisX, -10)
	if err != nil {
		t.Fatalf("RotateAxis failed: %v", err)
	}
	frame, err = e.RotateAxis(AxisY, 12)
	if err != nil {
		t.Fatalf("RotateAxis failed: %v", err)
	}

	expected := []byte{0x80, 0x66, 54, 76, 0x80}
	if !bytes.Equal(frame, expected) {
		t.Errorf("expected % X, got % X", expected, frame)
	}

	if _, err := e.RotateAxis(AxisZ, 1); err == nil {
		t.Error("rotate has no Z axis, expected error")
	}
}

func TestEncoder_OffsetClamping(t *testing.T) {
	tests := []struct {
		name     string
		offset   int
		expected byte
	}{
		{"center", 0, 64},
		{"min", MinAxisOffset, 0},
		{"below min", -200, 0},
		{"max", MaxAxisOffset, 127},
		{"above max", 64, 127},
		{"far above max", 1000, 127},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder()
			frame := e.Move(tt.offset, 0, 0)
			if frame[2] != tt.expected {
				t.Errorf("offset %d: expected %d, got %d", tt.offset, tt.expected, frame[2])
			}
			if frame[2] == HeaderByte || frame[2] == TerminatorByte {
				t.Errorf("payload byte collides with framing byte 0x%02X", frame[2])
			}
		})
	}
}

func TestEncoder_ResetPosture(t *testing.T) {
	e := NewEncoder()
	e.Move(10, 10, 10)
	e.Rotate(-3, 3)

	e.ResetPosture()

	if frame, _ := e.MoveAxis(AxisX, 0); !bytes.Equal(frame, []byte{0x80, 0x64, 64, 64, 64, 0x81}) {
		t.Errorf("move not re-centred: % X", frame)
	}
	if frame, _ := e.RotateAxis(AxisX, 0); !bytes.Equal(frame, []byte{0x80, 0x66, 64, 64, 0x80}) {
		t.Errorf("rotate not re-centred: % X", frame)
	}
}

func TestEncoder_BuffersAreReused(t *testing.T) {
	e := NewEncoder()

	first := e.Move(1, 2, 3)
	sent := append([]byte(nil), first...)
	second := e.Move(4, 5, 6)

	if &first[0] != &second[0] {
		t.Error("move buffer should be reused between calls")
	}
	if bytes.Equal(sent, second) {
		t.Error("copy taken at send time should not follow later mutations")
	}
}
