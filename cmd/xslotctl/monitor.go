// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xslot-sdk/xslot-go/internal/hal"
	"github.com/xslot-sdk/xslot-go/pkg/bacnet"
	"github.com/xslot-sdk/xslot-go/pkg/frame"
	"github.com/xslot-sdk/xslot-go/pkg/session"
)

var monitorDirect bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run a session and watch it live in a terminal UI",
	Long: `monitor starts a session over the configured port and shows the node
table, a scrolling log of reports/writes/raw frames, and the active
transport's health counters as they update.

Press 'q' to quit.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorDirect, "direct", false, "skip the TPMesh probe and start straight into Direct mode")
}

// nodeItem adapts nodetable.Entry to bubbles/list.Item.
type nodeItem struct {
	addr     uint16
	online   bool
	lastSeen int64
	rssi     int8
}

func (n nodeItem) Title() string {
	status := "online"
	if !n.online {
		status = "offline"
	}
	return fmt.Sprintf("0x%04X (%s)", n.addr, status)
}
func (n nodeItem) Description() string {
	return fmt.Sprintf("rssi=%d last_seen_ms=%d", n.rssi, n.lastSeen)
}
func (n nodeItem) FilterValue() string { return fmt.Sprintf("%04X", n.addr) }

type logEntry struct {
	at      time.Time
	message string
}

type monitorModel struct {
	sess     *session.Session
	nodeList list.Model
	log      []logEntry
	maxLog   int
	width    int
	height   int
	quitting bool
}

type tickMsg time.Time

type reportMsg struct {
	from uint16
	objs []bacnet.Object
}
type writeMsg struct {
	from uint16
	obj  bacnet.Object
}
type rawDataMsg struct {
	from uint16
	cmd  frame.Command
	n    int
}
type nodeStatusMsg struct {
	addr   uint16
	online bool
}

type logMsg string

func newMonitorModel(sess *session.Session) monitorModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	nl := list.New([]list.Item{}, delegate, 40, 12)
	nl.Title = "Nodes"
	nl.SetShowStatusBar(false)
	nl.SetShowHelp(false)
	nl.SetFilteringEnabled(false)

	return monitorModel{
		sess:     sess,
		nodeList: nl,
		maxLog:   200,
		width:    100,
		height:   30,
	}
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), tea.EnterAltScreen)
}

func (m *monitorModel) addLog(format string, args ...interface{}) {
	m.log = append(m.log, logEntry{at: time.Now(), message: fmt.Sprintf(format, args...)})
	if len(m.log) > m.maxLog {
		m.log = m.log[len(m.log)-m.maxLog:]
	}
}

func (m *monitorModel) refreshNodes() {
	entries := m.sess.GetNodes()
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, nodeItem{addr: e.Addr, online: e.Online, lastSeen: e.LastSeenMs, rssi: e.RSSI})
	}
	m.nodeList.SetItems(items)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.nodeList.SetSize(40, msg.Height-12)

	case tickMsg:
		m.refreshNodes()
		return m, monitorTickCmd()

	case reportMsg:
		m.addLog("REPORT from 0x%04X: %d object(s)", msg.from, len(msg.objs))

	case writeMsg:
		m.addLog("WRITE from 0x%04X: id=%d type=%s", msg.from, msg.obj.ID, msg.obj.Type)

	case rawDataMsg:
		m.addLog("%s from 0x%04X: %d byte(s)", msg.cmd, msg.from, msg.n)

	case nodeStatusMsg:
		if msg.online {
			m.addLog("node 0x%04X is now online", msg.addr)
		} else {
			m.addLog("node 0x%04X went offline", msg.addr)
		}
		m.refreshNodes()

	case logMsg:
		m.addLog("%s", string(msg))
	}

	var cmd tea.Cmd
	m.nodeList, cmd = m.nodeList.Update(msg)
	return m, cmd
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statsLabelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	statsValueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	listStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))

	var s strings.Builder
	s.WriteString(titleStyle.Render("XSLOTCTL - SESSION MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("mode=%s local=0x%04X | press 'q' to quit", m.sess.Mode(), localAddr)))
	s.WriteString("\n\n")

	stats := m.sess.Snapshot().TransportStats
	statsContent := fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.FramesReceived)),
		statsLabelStyle.Render("CRC failures:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.CRCFailures)),
		statsLabelStyle.Render("Resyncs:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.ReframeResyncs)),
	)
	s.WriteString(boxStyle.Render(statsContent))
	s.WriteString("\n\n")

	nodePanel := listStyle.Render(m.nodeList.View())

	logHeight := m.height - 18
	if logHeight < 5 {
		logHeight = 5
	}
	var logContent strings.Builder
	start := len(m.log) - logHeight
	if start < 0 {
		start = 0
	}
	if len(m.log) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, e := range m.log[start:] {
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(e.at.Format("15:04:05.000")), e.message))
		}
	}
	logPanel := boxStyle.Width(m.width - 46).Render(logContent.String())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, nodePanel, logPanel))
	return s.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("monitor requires --port")
	}

	cfg := session.Config{
		LocalAddr:    localAddr,
		UARTPort:     portName,
		UARTBaudRate: baudRate,
		ForceDirect:  monitorDirect,
	}

	sess := session.New(cfg, hal.NewRealProvider(), logger)
	ctx := context.Background()
	startErr := sess.Start(ctx)
	defer sess.Stop()

	m := newMonitorModel(sess)
	p := tea.NewProgram(m)

	if startErr != nil {
		p.Send(logMsg(fmt.Sprintf("session started with a degraded transport: %v", startErr)))
	}

	sess.OnReport(func(from uint16, objs []bacnet.Object) { p.Send(reportMsg{from: from, objs: objs}) })
	sess.OnWrite(func(from uint16, obj bacnet.Object) { p.Send(writeMsg{from: from, obj: obj}) })
	sess.OnRawData(func(from uint16, cmd frame.Command, payload []byte) {
		p.Send(rawDataMsg{from: from, cmd: cmd, n: len(payload)})
	})
	sess.OnNodeStatus(func(addr uint16, online bool) { p.Send(nodeStatusMsg{addr: addr, online: online}) })

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
