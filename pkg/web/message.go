// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Thermoquad/quadstat/pkg/bridge"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
)

// Message is the envelope used in both directions on the UI socket:
//
//	{"event":"Move X","data":-5}
//	{"event":"mirror","data":{"legs":[[...]]}}
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ParseCommand decodes one inbound UI message
func ParseCommand(raw []byte) (bridge.Command, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return bridge.Command{}, fmt.Errorf("invalid message: %w", err)
	}
	if err := bridge.ValidateCommand(msg.Event); err != nil {
		return bridge.Command{}, err
	}

	cmd := bridge.Command{Name: msg.Event}
	if !bridge.TakesValue(msg.Event) {
		return cmd, nil
	}

	data := bytes.TrimSpace(msg.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return bridge.Command{}, fmt.Errorf("%s: missing offset", msg.Event)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return bridge.Command{}, fmt.Errorf("%s: offset must be a number: %w", msg.Event, err)
	}
	// clamp before converting; out-of-range float to int conversion is undefined
	v = math.Max(quadproto.MinAxisOffset, math.Min(quadproto.MaxAxisOffset, math.Round(v)))
	cmd.Value = int(v)
	return cmd, nil
}
