// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge couples the robot link, the gait sequencer and a single UI
// client.
//
// All session state lives on one event loop (Coordinator.Run). Link readers,
// UI connections and gait timers only post work onto the loop, so the crawl
// state, command buffers, decoder and step cursor are never touched
// concurrently.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/Thermoquad/quadstat/pkg/gait"
	"github.com/Thermoquad/quadstat/pkg/link"
	"github.com/Thermoquad/quadstat/pkg/log"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
)

// DefaultQueueSize is the event loop's inbound queue length
const DefaultQueueSize = 256

// ErrStopped is returned when posting to a coordinator whose loop has exited
var ErrStopped = errors.New("bridge: coordinator stopped")

// Client receives UI events. Emit is called on the event loop and must not
// block; implementations queue the event for their own writer.
type Client interface {
	ID() string
	Emit(event string, data interface{})
}

// Options configures a Coordinator
type Options struct {
	Gaits     *gait.Set
	Logger    log.Logger
	Metrics   *Metrics
	QueueSize int

	// Scheduler overrides the loop scheduler, mainly for tests
	Scheduler gait.Scheduler
}

// Coordinator is the session coordinator
type Coordinator struct {
	log     log.Logger
	metrics *Metrics

	enc     *quadproto.Encoder
	session *link.Session
	seq     *gait.Sequencer
	gaits   *gait.Set

	direction gait.Direction
	crawling  bool
	client    Client

	events  chan func()
	done    chan struct{}
	started time.Time
}

// New creates a coordinator. Its loop does not run until Run is called.
// Without Gaits the built-in tables are used.
func New(opts Options) (*Coordinator, error) {
	if opts.Gaits == nil {
		set, err := gait.DefaultSet()
		if err != nil {
			return nil, err
		}
		opts.Gaits = set
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	c := &Coordinator{
		log:       opts.Logger,
		metrics:   opts.Metrics,
		enc:       quadproto.NewEncoder(),
		gaits:     opts.Gaits,
		direction: gait.Backward,
		events:    make(chan func(), opts.QueueSize),
		done:      make(chan struct{}),
		started:   time.Now(),
	}

	c.session = link.NewSession(c.enc, opts.Logger.WithField("component", "link"))
	c.session.OnFrame(c.handleFrame)
	c.session.OnError(c.handleDropped)

	sched := opts.Scheduler
	if sched == nil {
		sched = gait.NewLoopScheduler(func(fn func()) { c.post(fn) })
	}
	c.seq = gait.NewSequencer(sched, c.handleGaitStep)

	return c, nil
}

// Metrics returns the coordinator's collectors
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

// Run executes the event loop until ctx is done
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	c.log.Infof("coordinator running")

	for {
		select {
		case <-ctx.Done():
			c.seq.Stop()
			c.session.Disconnected(nil)
			c.log.Infof("coordinator stopped")
			return ctx.Err()
		case fn := <-c.events:
			fn()
		}
	}
}

// post hands fn to the loop. It returns false once the loop has exited.
func (c *Coordinator) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

// Dispatch posts a UI command
func (c *Coordinator) Dispatch(cmd Command) error {
	if err := ValidateCommand(cmd.Name); err != nil {
		return err
	}
	if !c.post(func() { c.handleCommand(cmd) }) {
		return ErrStopped
	}
	return nil
}

// Register makes client the UI client, replacing any previous one. The
// previous client stays open but receives no further events.
func (c *Coordinator) Register(client Client) {
	c.post(func() {
		if c.client != nil {
			c.log.Infof("UI client %s replaced by %s", c.client.ID(), client.ID())
		} else {
			c.log.Infof("UI client %s registered", client.ID())
		}
		c.client = client
		boolGauge(c.metrics.uiClient, true)
	})
}

// Unregister clears the client slot if client still holds it
func (c *Coordinator) Unregister(client Client) {
	c.post(func() {
		if c.client != client {
			return
		}
		c.log.Infof("UI client %s unregistered", client.ID())
		c.client = nil
		boolGauge(c.metrics.uiClient, false)
	})
}

// LinkConnected implements link.Events
func (c *Coordinator) LinkConnected(conn link.Connection, info string) {
	if !c.post(func() { c.handleConnected(conn, info) }) {
		conn.Close()
	}
}

// LinkData implements link.Events
func (c *Coordinator) LinkData(chunk []byte) {
	c.post(func() { c.session.Feed(chunk) })
}

// LinkDisconnected implements link.Events
func (c *Coordinator) LinkDisconnected(err error) {
	c.post(func() { c.handleDisconnected(err) })
}

// ============================================================
// Loop handlers
// ============================================================

func (c *Coordinator) handleCommand(cmd Command) {
	def := commandDefs[cmd.Name]
	c.metrics.commands.WithLabelValues(cmd.Name).Inc()
	c.log.Debugf("UI command %q (%d)", cmd.Name, cmd.Value)

	switch def.kind {
	case kindStretch:
		c.enc.ResetPosture()
		c.crawl(quadproto.CmdActivate, false)

	case kindCrawl:
		c.direction = def.direction
		c.crawl(def.direction.Code(), true)

	case kindRotate:
		if !c.session.IsConnected() {
			return
		}
		buf, err := c.enc.RotateAxis(def.axis, cmd.Value)
		if err != nil {
			c.log.Warnf("%s: %v", cmd.Name, err)
			return
		}
		c.send(buf)

	case kindMove:
		if !c.session.IsConnected() {
			return
		}
		buf, err := c.enc.MoveAxis(def.axis, cmd.Value)
		if err != nil {
			c.log.Warnf("%s: %v", cmd.Name, err)
			return
		}
		c.send(buf)
	}
}

// crawl applies a crawl command: the robot gets it when connected, otherwise
// the local sequencer stands in for the robot.
func (c *Coordinator) crawl(code byte, crawling bool) {
	c.crawling = crawling
	connected := c.session.IsConnected()

	if crawling || !connected {
		c.emit(EventDisable, crawling)
	}

	if connected {
		c.send(c.enc.Crawl(code))
		return
	}

	if !crawling {
		c.seq.Stop()
		c.emit(EventDisable, false)
		return
	}
	c.seq.Start(c.gaits.Table(c.direction))
}

func (c *Coordinator) handleFrame(f *quadproto.Frame) {
	c.metrics.frames.WithLabelValues(f.Kind().String()).Inc()

	switch f.Kind() {
	case quadproto.FrameCycleComplete:
		if c.crawling {
			c.send(c.enc.EnableTracking())
			c.send(c.enc.CrawlFrame())
		} else {
			c.emit(EventDisable, false)
		}
	case quadproto.FrameTelemetry:
		c.emit(EventMirror, f.Snapshot())
	}
}

func (c *Coordinator) handleDropped(err error) {
	reason := "malformed"
	switch {
	case errors.Is(err, quadproto.ErrRecordOverflow):
		reason = "overflow"
	case errors.Is(err, quadproto.ErrStrayStatusByte):
		reason = "stray"
	}
	c.metrics.dropped.WithLabelValues(reason).Inc()
}

func (c *Coordinator) handleGaitStep(pos quadproto.Snapshot) {
	c.metrics.gaitTicks.Inc()
	c.emit(EventMirror, pos)
}

func (c *Coordinator) handleConnected(conn link.Connection, info string) {
	// robot telemetry replaces the local replay
	c.seq.Stop()
	wasCrawling := c.crawling
	c.crawling = false
	c.countWrites(func() { c.session.Connected(conn, info) })
	boolGauge(c.metrics.linkUp, true)

	// the handshake activates the robot, which stops any crawl
	if wasCrawling {
		c.emit(EventDisable, false)
	}
}

func (c *Coordinator) handleDisconnected(err error) {
	if !c.session.Disconnected(err) {
		return
	}
	boolGauge(c.metrics.linkUp, false)

	if c.crawling {
		c.log.Infof("continuing %s gait locally", c.direction)
		c.seq.Start(c.gaits.Table(c.direction))
	}
}

func (c *Coordinator) send(buf []byte) {
	c.countWrites(func() { c.session.Send(buf) })
}

// countWrites mirrors the session write counters into metrics
func (c *Coordinator) countWrites(fn func()) {
	sent, suppressed := c.session.Sent(), c.session.Suppressed()
	fn()
	c.metrics.sent.Add(float64(c.session.Sent() - sent))
	c.metrics.suppressed.Add(float64(c.session.Suppressed() - suppressed))
}

func (c *Coordinator) emit(event string, data interface{}) {
	if c.client == nil {
		return
	}
	c.metrics.uiEvents.WithLabelValues(event).Inc()
	c.client.Emit(event, data)
}
