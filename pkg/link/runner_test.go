// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/quadstat/pkg/log"
)

type event struct {
	kind  string
	info  string
	chunk []byte
	err   error
}

// chanEvents forwards runner events to a channel
type chanEvents struct {
	ch chan event
}

func newChanEvents() *chanEvents {
	return &chanEvents{ch: make(chan event, 64)}
}

func (e *chanEvents) LinkConnected(conn Connection, info string) {
	e.ch <- event{kind: "connected", info: info}
}

func (e *chanEvents) LinkData(chunk []byte) {
	e.ch <- event{kind: "data", chunk: chunk}
}

func (e *chanEvents) LinkDisconnected(err error) {
	e.ch <- event{kind: "disconnected", err: err}
}

func (e *chanEvents) next(t *testing.T) event {
	t.Helper()
	select {
	case ev := <-e.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for link event")
		return event{}
	}
}

func TestRunner_ReadsUntilEnd(t *testing.T) {
	client, server := net.Pipe()
	events := newChanEvents()

	r := NewRunner(RunnerConfig{
		Address: "tcp://robot",
		DialFunc: func(ctx context.Context, addr string, opts DialOptions) (Connection, string, error) {
			return client, "pipe", nil
		},
	}, events, log.NewNop())

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	if ev := events.next(t); ev.kind != "connected" || ev.info != "pipe" {
		t.Fatalf("expected connected event, got %+v", ev)
	}

	server.Write([]byte(`{"a":1};`))
	if ev := events.next(t); ev.kind != "data" || string(ev.chunk) != `{"a":1};` {
		t.Fatalf("expected data event, got %+v", ev)
	}

	server.Close()
	if ev := events.next(t); ev.kind != "disconnected" || ev.err != nil {
		t.Fatalf("expected clean disconnect, got %+v", ev)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return without reconnect")
	}
}

func TestRunner_DialFailureWithoutReconnect(t *testing.T) {
	events := newChanEvents()
	dialErr := errors.New("no route to host")

	r := NewRunner(RunnerConfig{
		Address: "tcp://robot",
		DialFunc: func(ctx context.Context, addr string, opts DialOptions) (Connection, string, error) {
			return nil, "", dialErr
		},
	}, events, log.NewNop())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if ev := events.next(t); ev.kind != "disconnected" || !errors.Is(ev.err, dialErr) {
		t.Fatalf("expected dial failure event, got %+v", ev)
	}
}

func TestRunner_ReconnectsWithBackoff(t *testing.T) {
	events := newChanEvents()

	var mu sync.Mutex
	attempts := 0
	r := NewRunner(RunnerConfig{
		Address:    "tcp://robot",
		Reconnect:  true,
		MinBackoff: time.Millisecond,
		MaxBackoff: 4 * time.Millisecond,
		DialFunc: func(ctx context.Context, addr string, opts DialOptions) (Connection, string, error) {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts < 3 {
				return nil, "", errors.New("offline")
			}
			client, server := net.Pipe()
			server.Close()
			return client, "pipe", nil
		},
	}, events, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	kinds := []string{"disconnected", "disconnected", "connected", "disconnected"}
	for i, kind := range kinds {
		if ev := events.next(t); ev.kind != kind {
			t.Fatalf("event %d: expected %s, got %+v", i, kind, ev)
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunner_CancelClosesConnection(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	events := newChanEvents()

	r := NewRunner(RunnerConfig{
		Address: "tcp://robot",
		DialFunc: func(ctx context.Context, addr string, opts DialOptions) (Connection, string, error) {
			return client, "pipe", nil
		},
	}, events, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	events.next(t) // connected
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
