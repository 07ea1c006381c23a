// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package web

import (
	"testing"

	"github.com/Thermoquad/quadstat/pkg/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bridge.Command
		wantErr  bool
	}{
		{"stretch", `{"event":"Stretch"}`, bridge.Command{Name: bridge.CmdStretch}, false},
		{"forward ignores data", `{"event":"Forward","data":"go"}`, bridge.Command{Name: bridge.CmdForward}, false},
		{"move", `{"event":"Move X","data":-5}`, bridge.Command{Name: bridge.CmdMoveX, Value: -5}, false},
		{"rotate rounds", `{"event":"Rotate Y","data":2.6}`, bridge.Command{Name: bridge.CmdRotateY, Value: 3}, false},
		{"huge offset clamps high", `{"event":"Move Y","data":1e300}`, bridge.Command{Name: bridge.CmdMoveY, Value: 63}, false},
		{"huge negative offset clamps low", `{"event":"Move Y","data":-1e300}`, bridge.Command{Name: bridge.CmdMoveY, Value: -64}, false},
		{"move missing data", `{"event":"Move Z"}`, bridge.Command{}, true},
		{"move null data", `{"event":"Move Z","data":null}`, bridge.Command{}, true},
		{"move string data", `{"event":"Move Z","data":"up"}`, bridge.Command{}, true},
		{"unknown event", `{"event":"Jump"}`, bridge.Command{}, true},
		{"not json", `Forward`, bridge.Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd)
		})
	}
}
