// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Thermoquad/quadstat/pkg/log"
)

// Reconnect backoff bounds
const (
	MinBackoff = 1 * time.Second
	MaxBackoff = 30 * time.Second
)

// ReadBufferSize is the size of each read from the robot
const ReadBufferSize = 1024

// Events receives link activity. Implementations must not block for long;
// the coordinator forwards each call onto its event loop.
type Events interface {
	LinkConnected(conn Connection, info string)
	LinkData(chunk []byte)
	LinkDisconnected(err error)
}

// DialFunc opens a robot connection
type DialFunc func(ctx context.Context, addr string, opts DialOptions) (Connection, string, error)

// RunnerConfig configures a Runner
type RunnerConfig struct {
	Address   string
	Dial      DialOptions
	Reconnect bool

	// DialFunc overrides Dial, mainly for tests
	DialFunc   DialFunc
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Runner dials the robot and reads from it, reporting everything as Events.
// It never touches session state.
type Runner struct {
	cfg    RunnerConfig
	events Events
	log    log.Logger
}

// NewRunner creates a runner
func NewRunner(cfg RunnerConfig, events Events, logger log.Logger) *Runner {
	if cfg.DialFunc == nil {
		cfg.DialFunc = Dial
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = MinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = MaxBackoff
	}
	return &Runner{cfg: cfg, events: events, log: logger}
}

// Run connects and reads until ctx is done. Without reconnect it returns
// after the first failed dial or lost connection.
func (r *Runner) Run(ctx context.Context) error {
	backoff := r.cfg.MinBackoff

	for {
		conn, info, err := r.cfg.DialFunc(ctx, r.cfg.Address, r.cfg.Dial)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.events.LinkDisconnected(err)
		} else {
			backoff = r.cfg.MinBackoff
			r.events.LinkConnected(conn, info)
			err = r.readLoop(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.events.LinkDisconnected(err)
		}

		if !r.cfg.Reconnect {
			return nil
		}

		r.log.Infof("reconnecting in %s", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

// readLoop returns nil when the robot ended the stream
func (r *Runner) readLoop(ctx context.Context, conn Connection) error {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	buf := make([]byte, ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.events.LinkData(chunk)
		}
		if err != nil {
			conn.Close()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
