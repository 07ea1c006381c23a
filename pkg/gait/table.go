// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gait holds precomputed walking cycles and replays them on a timer.
//
// A gait table is an ordered list of leg-position snapshots, each with the delay
// to wait before the next one. Tables are produced offline and treated as
// immutable data; this package only loads, validates and replays them.
package gait

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Thermoquad/quadstat/pkg/quadproto"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var defaultTables embed.FS

// Table load errors
var (
	ErrEmptyTable    = errors.New("gait: table has no steps")
	ErrNegativeDelay = errors.New("gait: negative step delay")
	ErrMissingPos    = errors.New("gait: step has no leg positions")
)

// Direction selects one of the four walking cycles
type Direction int

const (
	Forward Direction = iota
	Backward
	Left
	Right
)

// Directions lists every direction in table-file order
var Directions = []Direction{Forward, Backward, Left, Right}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Code returns the crawl command code the robot expects for this direction
func (d Direction) Code() byte {
	switch d {
	case Forward:
		return quadproto.CmdForward
	case Backward:
		return quadproto.CmdBackward
	case Left:
		return quadproto.CmdLeft
	case Right:
		return quadproto.CmdRight
	default:
		return quadproto.CmdActivate
	}
}

// ParseDirection parses a direction name (case-insensitive)
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("gait: unknown direction %q", s)
}

// Step is one entry of a gait table
type Step struct {
	Pos     quadproto.Snapshot `yaml:"pos" json:"pos"`
	DelayMs int                `yaml:"delay" json:"delay"`
}

// Delay returns the step delay as a duration
func (s Step) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// Table is an immutable, cyclic walking sequence
type Table struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// Len returns the number of steps
func (t *Table) Len() int {
	return len(t.Steps)
}

// CycleDuration returns the sum of all step delays
func (t *Table) CycleDuration() time.Duration {
	var total time.Duration
	for _, s := range t.Steps {
		total += s.Delay()
	}
	return total
}

// Validate checks the table invariants
func (t *Table) Validate() error {
	if len(t.Steps) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyTable, t.Name)
	}
	for i, s := range t.Steps {
		if s.DelayMs < 0 {
			return fmt.Errorf("%w: %s step %d (%d ms)", ErrNegativeDelay, t.Name, i, s.DelayMs)
		}
		if s.Pos == nil {
			return fmt.Errorf("%w: %s step %d", ErrMissingPos, t.Name, i)
		}
	}
	return nil
}

// ParseTable decodes and validates a YAML gait table
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("error parsing gait table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTable loads a gait table from a YAML file. The table name defaults to the
// file name without extension.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading gait table '%s': %w", path, err)
	}

	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return t, nil
}

// Set holds one table per direction
type Set struct {
	tables map[Direction]*Table
}

// NewSet builds a set from explicit tables. Every direction must be present.
func NewSet(tables map[Direction]*Table) (*Set, error) {
	s := &Set{tables: make(map[Direction]*Table, len(Directions))}
	for _, d := range Directions {
		t, ok := tables[d]
		if !ok || t == nil {
			return nil, fmt.Errorf("gait: missing %s table", d)
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		s.tables[d] = t
	}
	return s, nil
}

// Table returns the table for a direction
func (s *Set) Table(d Direction) *Table {
	return s.tables[d]
}

// LoadSet loads forward.yaml, backward.yaml, left.yaml and right.yaml from dir.
// An empty dir selects the tables built into the binary.
func LoadSet(dir string) (*Set, error) {
	if dir == "" {
		return DefaultSet()
	}

	tables := make(map[Direction]*Table, len(Directions))
	for _, d := range Directions {
		t, err := LoadTable(filepath.Join(dir, d.String()+".yaml"))
		if err != nil {
			return nil, err
		}
		tables[d] = t
	}
	return NewSet(tables)
}

// DefaultSet returns the tables built into the binary
func DefaultSet() (*Set, error) {
	tables := make(map[Direction]*Table, len(Directions))
	for _, d := range Directions {
		data, err := defaultTables.ReadFile("tables/" + d.String() + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("error reading built-in %s table: %w", d, err)
		}
		t, err := ParseTable(data)
		if err != nil {
			return nil, err
		}
		if t.Name == "" {
			t.Name = d.String()
		}
		tables[d] = t
	}
	return NewSet(tables)
}
