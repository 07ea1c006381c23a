// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"

	"github.com/Thermoquad/quadstat/pkg/log"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
)

// State is the link connection state
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session tracks the robot link and turns inbound bytes into frames.
//
// Session is not safe for concurrent use. Its owner drives it from one
// goroutine: Connected, Disconnected and Feed are called with events produced
// by a Runner, Send with commands.
type Session struct {
	log   log.Logger
	enc   *quadproto.Encoder
	dec   *quadproto.Decoder
	stats *quadproto.Statistics

	conn  Connection
	info  string
	state State

	onFrame func(*quadproto.Frame)
	onError func(error)

	sent        uint64
	suppressed  uint64
	writeErrors uint64
}

// NewSession creates a disconnected session. The handshake frames are taken
// from enc.
func NewSession(enc *quadproto.Encoder, logger log.Logger) *Session {
	return &Session{
		log:   logger,
		enc:   enc,
		dec:   quadproto.NewDecoder(),
		stats: quadproto.NewStatistics(),
	}
}

// OnFrame registers the handler for decoded frames
func (s *Session) OnFrame(fn func(*quadproto.Frame)) {
	s.onFrame = fn
}

// OnError registers the handler for dropped records. Errors are always logged.
func (s *Session) OnError(fn func(error)) {
	s.onError = fn
}

// State returns the current connection state
func (s *Session) State() State {
	return s.state
}

// IsConnected reports whether writes reach the robot
func (s *Session) IsConnected() bool {
	return s.state == Connected
}

// Info describes the current or last connection
func (s *Session) Info() string {
	return s.info
}

// Statistics returns the inbound frame statistics
func (s *Session) Statistics() *quadproto.Statistics {
	return s.stats
}

// Sent returns the number of frames written to the robot
func (s *Session) Sent() uint64 {
	return s.sent
}

// Suppressed returns the number of writes dropped while disconnected
func (s *Session) Suppressed() uint64 {
	return s.suppressed
}

// WriteErrors returns the number of failed writes
func (s *Session) WriteErrors() uint64 {
	return s.writeErrors
}

// Connected adopts conn and performs the handshake: tracking is enabled, then
// the robot is activated. Any stale partial record is discarded.
func (s *Session) Connected(conn Connection, info string) {
	if s.conn != nil && s.conn != conn {
		s.conn.Close()
	}
	s.conn = conn
	s.info = info
	s.state = Connected
	s.dec.Reset()
	s.log.Infof("robot connected (%s)", info)

	s.Send(s.enc.EnableTracking())
	s.Send(s.enc.Activate())
}

// Disconnected drops the connection. It returns false if the session was
// already disconnected.
func (s *Session) Disconnected(err error) bool {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.state == Disconnected {
		if err != nil {
			s.log.Warnf("robot offline: %v", err)
		}
		return false
	}

	s.state = Disconnected
	if err != nil {
		s.log.Warnf("robot disconnected: %v", err)
	} else {
		s.log.Infof("robot disconnected")
	}
	return true
}

// Send writes buf to the robot. While disconnected the write is suppressed
// and Send returns false; write failures are logged and also return false.
func (s *Session) Send(buf []byte) bool {
	if s.state != Connected || s.conn == nil {
		s.suppressed++
		s.log.Debugf("robot offline, dropped %s", quadproto.FormatCommand(buf))
		return false
	}

	if _, err := s.conn.Write(buf); err != nil {
		s.writeErrors++
		s.log.Warnf("write %s failed: %v", quadproto.FormatCommand(buf), err)
		return false
	}
	s.sent++
	s.log.Debugf("sent %s", quadproto.FormatCommand(buf))
	return true
}

// Feed decodes an inbound chunk and dispatches every frame in arrival order
func (s *Session) Feed(chunk []byte) {
	s.stats.AddBytes(len(chunk))
	for _, r := range s.dec.Feed(chunk) {
		s.stats.Update(r.Frame, r.Err)
		if r.Err != nil {
			s.log.Warnf("dropped telemetry: %v", r.Err)
			if s.onError != nil {
				s.onError(r.Err)
			}
			continue
		}
		if s.onFrame != nil {
			s.onFrame(r.Frame)
		}
	}
}
