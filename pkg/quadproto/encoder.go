// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package quadproto

import "fmt"

// Axis selects one payload slot of a move or rotate frame.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Encoder owns one reusable buffer per command family.
//
// Every method mutates its buffer in place and returns a slice aliasing it. The
// returned slice is only valid until the next call for the same family, so callers
// must transmit it before encoding the next command of that family.
type Encoder struct {
	crawl    [CrawlFrameSize]byte
	tracking [TrackingFrameSize]byte
	move     [MoveFrameSize]byte
	rotate   [RotateFrameSize]byte
}

// NewEncoder creates an encoder with centred move/rotate buffers and the crawl
// buffer set to CmdActivate.
func NewEncoder() *Encoder {
	e := &Encoder{
		crawl:    [CrawlFrameSize]byte{HeaderByte, CmdActivate, TerminatorByte},
		tracking: [TrackingFrameSize]byte{HeaderByte, CmdTracking, TerminatorByte},
	}
	e.ResetPosture()
	return e
}

// Crawl sets the crawl command code and returns the crawl frame.
func (e *Encoder) Crawl(code byte) []byte {
	e.crawl[1] = code
	return e.crawl[:]
}

// Activate returns the crawl frame carrying CmdActivate. The robot treats it as
// "stand and stop crawling".
func (e *Encoder) Activate() []byte {
	return e.Crawl(CmdActivate)
}

// CrawlFrame returns the crawl frame with its current code, without mutating it.
func (e *Encoder) CrawlFrame() []byte {
	return e.crawl[:]
}

// EnableTracking returns the frame that asks the robot to stream leg telemetry.
// The protocol has no disable counterpart.
func (e *Encoder) EnableTracking() []byte {
	return e.tracking[:]
}

// Move writes all three translation offsets and returns the move frame.
func (e *Encoder) Move(dx, dy, dz int) []byte {
	e.move[2] = axisByte(dx)
	e.move[3] = axisByte(dy)
	e.move[4] = axisByte(dz)
	return e.move[:]
}

// MoveAxis writes a single translation offset and returns the move frame.
func (e *Encoder) MoveAxis(axis Axis, offset int) ([]byte, error) {
	switch axis {
	case AxisX, AxisY, AxisZ:
		e.move[2+int(axis)] = axisByte(offset)
		return e.move[:], nil
	default:
		return nil, fmt.Errorf("move: invalid axis %v", axis)
	}
}

// Rotate writes both rotation offsets and returns the rotate frame.
func (e *Encoder) Rotate(dx, dy int) []byte {
	e.rotate[2] = axisByte(dx)
	e.rotate[3] = axisByte(dy)
	return e.rotate[:]
}

// RotateAxis writes a single rotation offset and returns the rotate frame.
// Only X and Y are valid.
func (e *Encoder) RotateAxis(axis Axis, offset int) ([]byte, error) {
	switch axis {
	case AxisX, AxisY:
		e.rotate[2+int(axis)] = axisByte(offset)
		return e.rotate[:], nil
	default:
		return nil, fmt.Errorf("rotate: invalid axis %v", axis)
	}
}

// ResetPosture re-centres the move and rotate buffers.
func (e *Encoder) ResetPosture() {
	e.move = [MoveFrameSize]byte{HeaderByte, CmdMove, AxisCenter, AxisCenter, AxisCenter, TerminatorByte}
	e.rotate = [RotateFrameSize]byte{HeaderByte, CmdRotate, AxisCenter, AxisCenter, RotateTerminatorByte}
}

// axisByte biases a signed offset around AxisCenter. Offsets are clamped so the
// result never reaches the framing bytes.
func axisByte(offset int) byte {
	if offset < MinAxisOffset {
		offset = MinAxisOffset
	} else if offset > MaxAxisOffset {
		offset = MaxAxisOffset
	}
	return byte(AxisCenter + offset)
}
