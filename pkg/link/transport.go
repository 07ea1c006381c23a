// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link manages the byte stream between quadstat and the robot.
//
// A robot is addressed by URL:
//
//	tcp://192.168.4.1:65535              robot access point (default port 65535)
//	serial:///dev/ttyUSB0?baud=115200    direct UART
//	ws://host:port/path, wss://...       WebSocket-to-TCP bridge
//
// Every transport satisfies Connection.
package link

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Thermoquad/quadstat/pkg/quadproto"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// DefaultBaudRate is used for serial addresses without a baud parameter
const DefaultBaudRate = 115200

// DefaultAddress is the robot's access point endpoint
var DefaultAddress = "tcp://" + net.JoinHostPort(quadproto.DefaultRobotHost, strconv.Itoa(quadproto.DefaultRobotPort))

// Transport errors
var (
	ErrUnsupportedScheme = errors.New("link: unsupported address scheme")
	ErrConnectionClosed  = errors.New("link: connection closed")
)

// Connection provides a common interface for reading/writing robot bytes
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// DialOptions tunes how a transport is opened
type DialOptions struct {
	DialTimeout   time.Duration // connect / handshake timeout, 0 means none
	WriteTimeout  time.Duration // per-write deadline for TCP, 0 means none
	SkipTLSVerify bool          // wss:// only
}

// ParseAddress validates a robot address and fills in defaults
func ParseAddress(addr string) (*url.URL, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid robot address %q: %w", addr, err)
	}

	switch u.Scheme {
	case "tcp":
		if u.Hostname() == "" {
			return nil, fmt.Errorf("invalid robot address %q: missing host", addr)
		}
		if u.Port() == "" {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(quadproto.DefaultRobotPort))
		}
	case "serial":
		if serialDevice(u) == "" {
			return nil, fmt.Errorf("invalid robot address %q: missing device", addr)
		}
		if b := u.Query().Get("baud"); b != "" {
			if n, err := strconv.Atoi(b); err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid robot address %q: bad baud rate %q", addr, b)
			}
		}
	case "ws", "wss":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid robot address %q: missing host", addr)
		}
	default:
		return nil, fmt.Errorf("%w: %q (use tcp://, serial://, ws:// or wss://)", ErrUnsupportedScheme, u.Scheme)
	}
	return u, nil
}

// Dial opens the transport named by addr. The returned string describes the
// connection for logs and status output.
func Dial(ctx context.Context, addr string, opts DialOptions) (Connection, string, error) {
	u, err := ParseAddress(addr)
	if err != nil {
		return nil, "", err
	}

	switch u.Scheme {
	case "tcp":
		conn, err := OpenTCPConnection(ctx, u.Host, opts)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("TCP: %s", u.Host), nil
	case "serial":
		baud := DefaultBaudRate
		if b := u.Query().Get("baud"); b != "" {
			baud, _ = strconv.Atoi(b)
		}
		device := serialDevice(u)
		conn, err := OpenSerialConnection(device, baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", device, baud), nil
	default:
		conn, err := OpenWebSocketConnection(ctx, u, opts)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", u.Redacted()), nil
	}
}

func serialDevice(u *url.URL) string {
	if u.Path != "" {
		return u.Path
	}
	return u.Host
}

// TCPConnection wraps a TCP stream to the robot
type TCPConnection struct {
	conn         net.Conn
	writeTimeout time.Duration
}

// NewTCPConnection wraps an established stream
func NewTCPConnection(conn net.Conn, writeTimeout time.Duration) *TCPConnection {
	return &TCPConnection{conn: conn, writeTimeout: writeTimeout}
}

// OpenTCPConnection dials host:port
func OpenTCPConnection(ctx context.Context, hostport string, opts DialOptions) (*TCPConnection, error) {
	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", hostport, err)
	}
	return NewTCPConnection(conn, opts.WriteTimeout), nil
}

func (t *TCPConnection) Read(p []byte) (int, error) {
	return t.conn.Read(p)
}

func (t *TCPConnection) Write(p []byte) (int, error) {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return t.conn.Write(p)
}

func (t *TCPConnection) Close() error {
	return t.conn.Close()
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

// OpenSerialConnection opens a serial port with 8N1 framing
func OpenSerialConnection(portName string, baudRate int) (*SerialConnection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection exposes a WebSocket as a byte stream. Each inbound
// binary or text message is delivered as one chunk; writes are sent as binary
// messages.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

// NewWebSocketConnection wraps an established WebSocket
func NewWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	return &WebSocketConnection{conn: conn}
}

// OpenWebSocketConnection dials a ws:// or wss:// URL. Credentials in the URL
// are sent as HTTP Basic auth.
func OpenWebSocketConnection(ctx context.Context, u *url.URL, opts DialOptions) (*WebSocketConnection, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: opts.DialTimeout,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipTLSVerify,
		}
	}

	headers := http.Header{}
	target := *u
	if u.User != nil {
		password, _ := u.User.Password()
		credentials := base64.StdEncoding.EncodeToString([]byte(u.User.Username() + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
		target.User = nil
	}

	conn, resp, err := dialer.DialContext(ctx, target.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocketConnection(conn), nil
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		if len(data) == 0 {
			continue
		}

		w.buf = data
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}
