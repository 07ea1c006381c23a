// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package quadproto

import (
	"fmt"
	"sort"
	"strings"
)

// FormatFrame formats a decoded frame in human-readable form
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s", timestamp, f.Kind())

	if f.Kind() == FrameTelemetry {
		result += fmt.Sprintf(" len=%d\n", len(f.Raw()))
		result += FormatSnapshot(f.Snapshot())
		return result
	}
	return result + "\n"
}

// FormatSnapshot formats telemetry keys in sorted order, one per line
func FormatSnapshot(s Snapshot) string {
	if len(s) == 0 {
		return "  (empty)\n"
	}

	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, s[k])
	}
	return b.String()
}

// FormatCommandCode returns the name of a crawl/command code
func FormatCommandCode(code byte) string {
	switch code {
	case CmdForward:
		return "FORWARD"
	case CmdBackward:
		return "BACKWARD"
	case CmdLeft:
		return "LEFT"
	case CmdRight:
		return "RIGHT"
	case CmdActivate:
		return "ACTIVATE"
	case CmdTracking:
		return "TRACKING"
	case CmdMove:
		return "MOVE"
	case CmdRotate:
		return "ROTATE"
	default:
		return "UNKNOWN"
	}
}

// FormatCommand formats an outbound command frame for logs
func FormatCommand(frame []byte) string {
	if len(frame) < 3 || frame[0] != HeaderByte {
		return fmt.Sprintf("RAW % X", frame)
	}

	code := frame[1]
	name := FormatCommandCode(code)
	switch code {
	case CmdMove:
		if len(frame) == MoveFrameSize {
			return fmt.Sprintf("%s x=%+d y=%+d z=%+d", name,
				int(frame[2])-AxisCenter, int(frame[3])-AxisCenter, int(frame[4])-AxisCenter)
		}
	case CmdRotate:
		if len(frame) == RotateFrameSize {
			return fmt.Sprintf("%s x=%+d y=%+d", name,
				int(frame[2])-AxisCenter, int(frame[3])-AxisCenter)
		}
	default:
		if len(frame) == CrawlFrameSize {
			return name
		}
	}
	return fmt.Sprintf("%s (0x%02X) % X", name, code, frame)
}
