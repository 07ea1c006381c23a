// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/quadstat/pkg/bridge"
	"github.com/Thermoquad/quadstat/pkg/quadproto"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	moveStep       = 5 // Move Z offset per key press
	maxLogEntries  = 100
	statusTimeout  = 500 * time.Millisecond
	legColumnWidth = 8
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// monitorBridge is the part of the coordinator the TUI drives
type monitorBridge interface {
	Dispatch(cmd bridge.Command) error
	Status(ctx context.Context) (bridge.Status, error)
}

type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type monitorKeyMap struct {
	Forward  key.Binding
	Backward key.Binding
	Left     key.Binding
	Right    key.Binding
	Stretch  key.Binding
	Raise    key.Binding
	Lower    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Forward, k.Stretch, k.Help, k.Quit}
}

func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Forward, k.Backward, k.Left, k.Right},
		{k.Stretch, k.Raise, k.Lower},
		{k.Help, k.Quit},
	}
}

var monitorKeys = monitorKeyMap{
	Forward:  key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "forward")),
	Backward: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "backward")),
	Left:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "left")),
	Right:    key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
	Stretch:  key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "stretch")),
	Raise:    key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "raise")),
	Lower:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "lower")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	bridge monitorBridge
	robot  string

	legs    table.Model
	help    help.Model
	keys    monitorKeyMap
	extra   quadproto.Snapshot
	mirrors uint64

	status    bridge.Status
	hasStatus bool
	crawling  bool

	eventLog []eventLogEntry

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

// bridgeEventMsg carries one UI event emitted by the coordinator
type bridgeEventMsg struct {
	event string
	data  interface{}
}

type monitorStatusMsg struct {
	status bridge.Status
	err    error
}

type dispatchResultMsg struct {
	cmd bridge.Command
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(b monitorBridge, robot string) monitorModel {
	legs := table.New(
		table.WithColumns([]table.Column{
			{Title: "Leg", Width: legColumnWidth},
			{Title: "X", Width: legColumnWidth},
			{Title: "Y", Width: legColumnWidth},
			{Title: "Z", Width: legColumnWidth},
		}),
		table.WithHeight(5),
	)

	return monitorModel{
		bridge:   b,
		robot:    robot,
		legs:     legs,
		help:     help.New(),
		keys:     monitorKeys,
		eventLog: make([]eventLogEntry, 0),
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), m.pollStatus())
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case monitorTickMsg:
		return m, tea.Batch(monitorTickCmd(), m.pollStatus())

	case monitorStatusMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Status unavailable: %v", msg.err), true)
			break
		}
		if m.hasStatus && m.status.Link != msg.status.Link {
			m.addLogEntry(fmt.Sprintf("Robot link %s", msg.status.Link), false)
		}
		m.status = msg.status
		m.hasStatus = true

	case dispatchResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.cmd.Name, msg.err), true)
		}

	case bridgeEventMsg:
		m.handleBridgeEvent(msg)
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Forward):
		return m, m.dispatch(bridge.Command{Name: bridge.CmdForward})

	case key.Matches(msg, m.keys.Backward):
		return m, m.dispatch(bridge.Command{Name: bridge.CmdBackward})

	case key.Matches(msg, m.keys.Left):
		return m, m.dispatch(bridge.Command{Name: bridge.CmdLeft})

	case key.Matches(msg, m.keys.Right):
		return m, m.dispatch(bridge.Command{Name: bridge.CmdRight})

	case key.Matches(msg, m.keys.Stretch):
		return m, m.dispatch(bridge.Command{Name: bridge.CmdStretch})

	case key.Matches(msg, m.keys.Raise):
		return m, m.dispatch(bridge.Command{Name: bridge.CmdMoveZ, Value: moveStep})

	case key.Matches(msg, m.keys.Lower):
		return m, m.dispatch(bridge.Command{Name: bridge.CmdMoveZ, Value: -moveStep})
	}

	return m, nil
}

// dispatch posts cmd off the Update goroutine; the loop queue may be full
func (m monitorModel) dispatch(cmd bridge.Command) tea.Cmd {
	b := m.bridge
	return func() tea.Msg {
		return dispatchResultMsg{cmd: cmd, err: b.Dispatch(cmd)}
	}
}

func (m monitorModel) pollStatus() tea.Cmd {
	b := m.bridge
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()
		s, err := b.Status(ctx)
		return monitorStatusMsg{status: s, err: err}
	}
}

func (m *monitorModel) handleBridgeEvent(msg bridgeEventMsg) {
	switch msg.event {
	case bridge.EventMirror:
		snap, ok := msg.data.(quadproto.Snapshot)
		if !ok {
			return
		}
		m.mirrors++
		rows, rest := legRows(snap)
		if rows != nil {
			m.legs.SetRows(rows)
		}
		m.extra = rest

	case bridge.EventDisable:
		crawling, _ := msg.data.(bool)
		if crawling != m.crawling {
			if crawling {
				m.addLogEntry("Crawling", false)
			} else {
				m.addLogEntry("Stopped", false)
			}
		}
		m.crawling = crawling

	default:
		m.addLogEntry(fmt.Sprintf("Unknown event %q", msg.event), true)
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("QUADSTAT MONITOR"))
	s.WriteString(" ")
	link := "unknown"
	if m.hasStatus {
		link = m.status.Link
	}
	if link == "connected" {
		link = statsValueStyle.Render(link)
	} else {
		link = warningStyle.Render(link)
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | ", m.robot)))
	s.WriteString(link)
	s.WriteString("\n\n")

	s.WriteString(m.renderStatusBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.renderLegs(statsLabelStyle, headerStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, errorStyle, headerStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	s.WriteString("\n")

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m monitorModel) renderStatusBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	mode := "idle"
	if m.crawling {
		mode = "crawling"
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Mode:"), statsValueStyle.Render(mode),
		statsLabelStyle.Render("Direction:"), statsValueStyle.Render(m.status.Direction),
		statsLabelStyle.Render("Replay:"), statsValueStyle.Render(m.status.Sequencer),
		statsLabelStyle.Render("Mirrors:"), statsValueStyle.Render(fmt.Sprintf("%d", m.mirrors)),
	)

	if m.hasStatus {
		dropped := m.status.MalformedRecords + m.status.OverflowRecords + m.status.StrayBytes
		droppedText := statsValueStyle.Render("0")
		if dropped > 0 {
			droppedText = errorStyle.Render(fmt.Sprintf("%d", dropped))
		}
		content += fmt.Sprintf("\n%s %s  %s %s  %s %s  %s %s",
			statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", m.status.Sent)),
			statsLabelStyle.Render("Suppressed:"), statsValueStyle.Render(fmt.Sprintf("%d", m.status.Suppressed)),
			statsLabelStyle.Render("Telemetry:"), statsValueStyle.Render(fmt.Sprintf("%d", m.status.TelemetryFrames)),
			statsLabelStyle.Render("Dropped:"), droppedText,
		)
	}

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m monitorModel) renderLegs(statsLabelStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("LEGS"))
	s.WriteString("\n")

	if len(m.legs.Rows()) == 0 {
		s.WriteString(headerStyle.Render("  (no positions yet)"))
	} else {
		s.WriteString(m.legs.View())
	}

	if len(m.extra) > 0 {
		s.WriteString("\n")
		s.WriteString(headerStyle.Render(strings.TrimRight(quadproto.FormatSnapshot(m.extra), "\n")))
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

func (m monitorModel) renderEventLog(statsLabelStyle, warningStyle, errorStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := m.height - 20
	if logHeight < 3 {
		logHeight = 3
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for i := startIdx; i < len(m.eventLog); i++ {
		entry := m.eventLog[i]
		icon := "i"
		style := warningStyle
		if entry.isError {
			icon = "x"
			style = errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return boxStyle.Width(m.width - 4).Render(strings.TrimRight(s.String(), "\n"))
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

// legRows turns the "legs" entry of a snapshot into table rows. Gait tables
// decode coordinates as ints and robot telemetry as floats. The remaining keys
// are returned unchanged. rows is nil when the snapshot has no usable legs.
func legRows(snap quadproto.Snapshot) (rows []table.Row, rest quadproto.Snapshot) {
	rest = make(quadproto.Snapshot, len(snap))
	for k, v := range snap {
		if k != "legs" {
			rest[k] = v
		}
	}

	legs, ok := snap["legs"].([]interface{})
	if !ok {
		if _, present := snap["legs"]; present {
			rest["legs"] = snap["legs"]
		}
		return nil, rest
	}

	rows = make([]table.Row, 0, len(legs))
	for i, leg := range legs {
		coords, _ := leg.([]interface{})
		row := table.Row{fmt.Sprintf("%d", i+1), "-", "-", "-"}
		for j := 0; j < len(coords) && j < 3; j++ {
			row[j+1] = formatCoord(coords[j])
		}
		rows = append(rows, row)
	}
	return rows, rest
}

func formatCoord(v interface{}) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
