// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package web

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/quadstat/pkg/log"
	"github.com/gofiber/contrib/websocket"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound UI messages
	maxMessageSize = 4096

	// sendQueueSize is the per-client outbound queue length
	sendQueueSize = 256
)

// uiClient is one UI WebSocket connection. Emit only queues; a dedicated
// writer goroutine owns all writes to the socket.
type uiClient struct {
	id   string
	conn *websocket.Conn
	log  log.Logger

	send    chan []byte
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func newUIClient(id string, conn *websocket.Conn, logger log.Logger) *uiClient {
	return &uiClient{
		id:   id,
		conn: conn,
		log:  logger,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (c *uiClient) ID() string {
	return c.id
}

// Emit queues an event. A full queue drops the event.
func (c *uiClient) Emit(event string, data interface{}) {
	payload, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		c.log.Warnf("failed to encode %s event: %v", event, err)
		return
	}

	select {
	case <-c.done:
	case c.send <- payload:
	default:
		if c.dropped.Add(1) == 1 {
			c.log.Warnf("UI client %s is not keeping up, dropping events", c.id)
		}
	}
}

func (c *uiClient) close() {
	c.once.Do(func() { close(c.done) })
}

// writePump is the only writer on the socket
func (c *uiClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debugf("UI client %s write failed: %v", c.id, err)
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
