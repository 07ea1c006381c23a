// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/quadstat/pkg/bridge"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBridge records UI traffic
type fakeBridge struct {
	mu         sync.Mutex
	client     bridge.Client
	commands   chan bridge.Command
	registered chan bridge.Client
	released   chan bridge.Client
	status     bridge.Status
	statusErr  error
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		commands:   make(chan bridge.Command, 16),
		registered: make(chan bridge.Client, 4),
		released:   make(chan bridge.Client, 4),
	}
}

func (f *fakeBridge) Dispatch(cmd bridge.Command) error {
	f.commands <- cmd
	return nil
}

func (f *fakeBridge) Register(client bridge.Client) {
	f.mu.Lock()
	f.client = client
	f.mu.Unlock()
	f.registered <- client
}

func (f *fakeBridge) Unregister(client bridge.Client) {
	f.mu.Lock()
	if f.client == client {
		f.client = nil
	}
	f.mu.Unlock()
	f.released <- client
}

func (f *fakeBridge) Status(ctx context.Context) (bridge.Status, error) {
	return f.status, f.statusErr
}

func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.App().Listener(ln)
	t.Cleanup(func() {
		s.Shutdown(context.Background())
	})
	return ln.Addr().String()
}

func TestServer_Health(t *testing.T) {
	s := NewServer(Config{}, newFakeBridge())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
}

func TestServer_Status(t *testing.T) {
	b := newFakeBridge()
	b.status = bridge.Status{Link: "connected", Direction: "left", Crawling: true}
	s := NewServer(Config{}, b)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var status bridge.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, b.status, status)
}

func TestServer_StatusStopped(t *testing.T) {
	b := newFakeBridge()
	b.statusErr = bridge.ErrStopped
	s := NewServer(Config{}, b)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "quadstat_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := NewServer(Config{Gatherer: reg}, newFakeBridge())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "quadstat_test_total 1")
}

func TestServer_MetricsDisabled(t *testing.T) {
	s := NewServer(Config{}, newFakeBridge())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestServer_StaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>quad</h1>"), 0644))

	s := NewServer(Config{StaticDir: dir}, newFakeBridge())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<h1>quad</h1>", string(body))
}

func TestServer_WebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer(Config{}, newFakeBridge())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestServer_WebSocketSession(t *testing.T) {
	b := newFakeBridge()
	addr := startServer(t, NewServer(Config{}, b))

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	var client bridge.Client
	select {
	case client = <-b.registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was never registered")
	}
	assert.NotEmpty(t, client.ID())

	// inbound commands are dispatched in order, bad ones skipped
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"Forward"}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"Jump"}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"Move X","data":-5}`)))

	for _, expected := range []bridge.Command{
		{Name: bridge.CmdForward},
		{Name: bridge.CmdMoveX, Value: -5},
	} {
		select {
		case cmd := <-b.commands:
			assert.Equal(t, expected, cmd)
		case <-time.After(2 * time.Second):
			t.Fatalf("command %q was never dispatched", expected.Name)
		}
	}

	// outbound events arrive in emit order
	client.Emit(bridge.EventDisable, true)
	client.Emit(bridge.EventMirror, map[string]interface{}{"legs": []int{1, 2, 3}})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second Message
	require.NoError(t, ws.ReadJSON(&first))
	require.NoError(t, ws.ReadJSON(&second))

	assert.Equal(t, bridge.EventDisable, first.Event)
	assert.Equal(t, "true", string(first.Data))
	assert.Equal(t, bridge.EventMirror, second.Event)
	assert.JSONEq(t, `{"legs":[1,2,3]}`, string(second.Data))

	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case released := <-b.released:
		assert.Equal(t, client.ID(), released.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("client was never unregistered")
	}
}

func TestServer_NewestClientWins(t *testing.T) {
	b := newFakeBridge()
	addr := startServer(t, NewServer(Config{}, b))

	first, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer first.Close()
	firstClient := <-b.registered

	second, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer second.Close()
	secondClient := <-b.registered

	assert.NotEqual(t, firstClient.ID(), secondClient.ID())

	b.mu.Lock()
	current := b.client
	b.mu.Unlock()
	assert.True(t, strings.EqualFold(current.ID(), secondClient.ID()))
}
