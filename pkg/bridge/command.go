// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"

	"github.com/Thermoquad/quadstat/pkg/gait"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
)

// UI command names
const (
	CmdStretch  = "Stretch"
	CmdForward  = "Forward"
	CmdBackward = "Backward"
	CmdLeft     = "Left"
	CmdRight    = "Right"
	CmdRotateX  = "Rotate X"
	CmdRotateY  = "Rotate Y"
	CmdMoveX    = "Move X"
	CmdMoveY    = "Move Y"
	CmdMoveZ    = "Move Z"
)

// UI event names
const (
	EventMirror  = "mirror"
	EventDisable = "disable"
)

// Commands lists every accepted UI command
var Commands = []string{
	CmdStretch, CmdForward, CmdBackward, CmdLeft, CmdRight,
	CmdRotateX, CmdRotateY, CmdMoveX, CmdMoveY, CmdMoveZ,
}

// Command is one UI request. Value carries the signed axis offset for
// rotate and move commands and is ignored otherwise.
type Command struct {
	Name  string
	Value int
}

type commandKind int

const (
	kindStretch commandKind = iota
	kindCrawl
	kindRotate
	kindMove
)

type commandDef struct {
	kind      commandKind
	direction gait.Direction
	axis      quadproto.Axis
}

var commandDefs = map[string]commandDef{
	CmdStretch:  {kind: kindStretch},
	CmdForward:  {kind: kindCrawl, direction: gait.Forward},
	CmdBackward: {kind: kindCrawl, direction: gait.Backward},
	CmdLeft:     {kind: kindCrawl, direction: gait.Left},
	CmdRight:    {kind: kindCrawl, direction: gait.Right},
	CmdRotateX:  {kind: kindRotate, axis: quadproto.AxisX},
	CmdRotateY:  {kind: kindRotate, axis: quadproto.AxisY},
	CmdMoveX:    {kind: kindMove, axis: quadproto.AxisX},
	CmdMoveY:    {kind: kindMove, axis: quadproto.AxisY},
	CmdMoveZ:    {kind: kindMove, axis: quadproto.AxisZ},
}

// ValidateCommand reports whether name is a known UI command
func ValidateCommand(name string) error {
	if _, ok := commandDefs[name]; !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	return nil
}

// TakesValue reports whether the command uses Command.Value
func TakesValue(name string) bool {
	def, ok := commandDefs[name]
	return ok && (def.kind == kindRotate || def.kind == kindMove)
}
