// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package quadproto

import (
	"bytes"
	"fmt"
	"time"
)

// Decoder states
const (
	stateIdle    = iota // between records
	stateRecord         // inside a telemetry record
	stateDiscard        // dropping the tail of an oversized record until ';'
)

// Decoder implements the inbound frame decoder.
//
// Telemetry records are decoded by a byte-level state machine: '{' opens a
// record and bytes are accumulated until ';'. Records may span any number of
// reads. Status frames are not delimited, so they are recognised per chunk:
// a chunk that arrives outside a record and does not start with '{' is a
// status frame, and its byte[1] tells whether a gait cycle completed. Any
// other bytes outside a record are discarded.
type Decoder struct {
	state       int
	accumulator []byte // bytes of the current partial record
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:       stateIdle,
		accumulator: make([]byte, 0, 256),
	}
}

// Reset discards any partial frame
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.accumulator = d.accumulator[:0]
}

// Residual returns the bytes of the partial record currently held
func (d *Decoder) Residual() []byte {
	return d.accumulator
}

// DecodeByte processes a single byte through the record state machine.
// Returns a completed telemetry frame, or nil if the record is incomplete.
// Returns an error when a record is dropped; the decoder is then ready for the
// next record. Bytes outside a record are ignored.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateIdle:
		if b == RecordStart {
			d.accumulator = append(d.accumulator[:0], b)
			d.state = stateRecord
		}
		return nil, nil

	case stateRecord:
		if b == RecordDelimiter {
			record := make([]byte, len(d.accumulator))
			copy(record, d.accumulator)
			d.accumulator = d.accumulator[:0]
			d.state = stateIdle

			snapshot, err := ParseRecord(record)
			if err != nil {
				return nil, err
			}
			return &Frame{kind: FrameTelemetry, snapshot: snapshot, raw: record, timestamp: time.Now()}, nil
		}

		if len(d.accumulator) >= MaxRecordSize {
			dropped := make([]byte, len(d.accumulator))
			copy(dropped, d.accumulator)
			d.accumulator = d.accumulator[:0]
			d.state = stateDiscard
			return nil, &RecordError{Err: ErrRecordOverflow, Record: dropped}
		}
		d.accumulator = append(d.accumulator, b)
		return nil, nil

	case stateDiscard:
		if b == RecordDelimiter {
			d.state = stateIdle
		}
		return nil, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// Result is one outcome of decoding a chunk: either a frame or a dropped record.
type Result struct {
	Frame *Frame
	Err   error
}

// Feed decodes one freshly read chunk and returns every frame and decode error
// it produced, in stream order.
func (d *Decoder) Feed(chunk []byte) []Result {
	var results []Result
	if d.state == stateIdle {
		if r, ok := decodeStatus(chunk); ok {
			results = append(results, r)
		}
	}

	for _, b := range chunk {
		frame, err := d.DecodeByte(b)
		if err != nil {
			results = append(results, Result{Err: err})
			continue
		}
		if frame != nil {
			results = append(results, Result{Frame: frame})
		}
	}
	return results
}

// decodeStatus checks the non-record prefix of a chunk for a status frame.
// A one-byte prefix that is not a separator is reported as a stray byte.
func decodeStatus(chunk []byte) (Result, bool) {
	if len(chunk) == 0 || chunk[0] == RecordStart {
		return Result{}, false
	}

	prefix := chunk
	if i := bytes.IndexByte(chunk, RecordStart); i >= 0 {
		prefix = chunk[:i]
	}

	if len(prefix) >= StatusFrameSize {
		if prefix[1] == StatusCycleDone {
			return Result{Frame: NewCycleCompleteFrame()}, true
		}
		return Result{}, false
	}

	if isSpace(prefix[0]) || prefix[0] == RecordDelimiter {
		return Result{}, false
	}
	return Result{Err: fmt.Errorf("%w: 0x%02X", ErrStrayStatusByte, prefix[0])}, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
