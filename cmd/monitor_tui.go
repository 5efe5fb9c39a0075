// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/siastat/pkg/sia"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for information
}

// TUI model
type model struct {
	connInfo      string
	showAll       bool
	stats         sia.Statistics
	level         int
	eventLog      []logEntry
	maxLogEntries int
	synchronized  bool
	resyncs       uint64
	connected     bool
	lastEvent     *sia.Event
	log           viewport.Model
	follow        bool
	width         int
	height        int
	quitting      bool
}

type tickMsg time.Time

// Rows used by everything above the event log.
const headerRows = 16

// formatDuration formats a duration as a human-friendly string
func formatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	units := []struct {
		name string
		size int64
	}{
		{"day", 24 * 60 * 60},
		{"hour", 60 * 60},
		{"minute", 60},
		{"second", 1},
	}

	parts := []string{}
	for _, u := range units {
		n := seconds / u.size
		seconds %= u.size
		switch {
		case n == 1:
			parts = append(parts, "1 "+u.name)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", n, u.name))
		}
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(connInfo string, showAll bool, level int) model {
	m := model{
		connInfo:      connInfo,
		showAll:       showAll,
		stats:         *sia.NewStatistics(),
		level:         level,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 500,
		connected:     true,
		log:           viewport.New(76, 8),
		follow:        true,
		width:         80,
		height:        24,
	}
	m.refreshLog()
	return m
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "end", "G":
			m.follow = true
			m.log.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		m.follow = m.log.AtBottom()
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		m.follow = m.log.AtBottom()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.log.Width = max(msg.Width-4, 20)
		m.log.Height = max(msg.Height-headerRows, 5)
		m.refreshLog()

	case tickMsg:
		// Update statistics rates
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.resyncs = msg.resyncs
		if msg.resyncs > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", msg.resyncs), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case blockMsg:
		if m.showAll {
			m.addLogEntry(strings.TrimRight(sia.FormatBlock(msg.block), "\n"), false)
		}

	case eventMsg:
		m.lastEvent = msg.event
		name := ""
		if msg.event.Event != nil {
			name = msg.event.Event.Name
		}
		account := "-"
		if msg.event.AccountID != nil {
			account = fmt.Sprintf("%d", *msg.event.AccountID)
		}
		m.addLogEntry(fmt.Sprintf("Account %s: %s %s", account, msg.event.Code(), name), false)
		for _, a := range msg.anomalies {
			m.addLogEntry(fmt.Sprintf("%s: %s", msg.event.Code(), a.Message), true)
		}

	case noticeMsg:
		m.addLogEntry(msg.text, msg.isError)

	case statsMsg:
		m.stats = msg.stats
		m.level = msg.level

	case connectionLostMsg:
		m.connected = false
		m.synchronized = false
		m.addLogEntry("Connection lost, reconnecting...", true)

	case reconnectedMsg:
		m.connected = true
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected: "+msg.connInfo, false)

	case readerDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
	m.refreshLog()
}

// refreshLog renders the log entries into the viewport
func (m *model) refreshLog() {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	if len(m.eventLog) == 0 {
		m.log.SetContent(headerStyle.Render("  (no events yet)"))
		return
	}

	var content strings.Builder
	for _, entry := range m.eventLog {
		timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
		if entry.isError {
			content.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp),
				errorStyle.Render("✗ "+entry.message),
			))
		} else {
			content.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp),
				infoStyle.Render("ℹ "+entry.message),
			))
		}
	}
	m.log.SetContent(content.String())
	if m.follow {
		m.log.GotoBottom()
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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
	var s strings.Builder
	s.WriteString(titleStyle.Render("SIASTAT - MONITOR"))
	s.WriteString("\n")
	mode := "Events and errors"
	if m.showAll {
		mode = "All blocks"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Level %d | Mode: %s | Press 'q' to quit",
		m.connInfo, m.level, mode)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case !m.connected:
		s.WriteString(errorStyle.Render("✗ Disconnected"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.resyncs > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.resyncs)))
		}
	}
	s.WriteString("  ")
	s.WriteString(headerStyle.Render("Up " + formatDuration(time.Since(m.stats.StartTime))))
	s.WriteString("\n\n")

	// Statistics
	errors := m.stats.ChecksumErrors + m.stats.HandlerFailures + m.stats.FieldErrors + m.stats.UnknownCodes
	var errorPercent float64
	if frames := m.stats.TotalBlocks + m.stats.ChecksumErrors; frames > 0 {
		errorPercent = float64(errors) * 100.0 / float64(frames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Blocks:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalBlocks)),
		statsLabelStyle.Render("Events:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Events)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", errors, errorPercent)),
	))

	if m.stats.ChecksumErrors > 0 || m.stats.HandlerFailures > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Checksum:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			statsLabelStyle.Render("Resyncs:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Resyncs)),
			statsLabelStyle.Render("Unhandled:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.HandlerFailures)),
		))
	}

	if m.stats.UnknownCodes > 0 || m.stats.FieldErrors > 0 || m.stats.Anomalies > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Unknown codes:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.UnknownCodes)),
			statsLabelStyle.Render("Bad fields:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.FieldErrors)),
			statsLabelStyle.Render("Anomalies:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Anomalies)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		statsLabelStyle.Render("Acks sent/recv:"), statsValueStyle.Render(fmt.Sprintf("%d / %d", m.stats.AcksSent, m.stats.AcksReceived)),
		statsLabelStyle.Render("Rejects sent/recv:"), statsValueStyle.Render(fmt.Sprintf("%d / %d", m.stats.RejectsSent, m.stats.RejectsReceived)),
	))

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Block Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f blk/s", m.stats.BlockRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n")

	// Latest event
	if m.lastEvent != nil {
		summary := fmt.Sprintf("%s %s", statsLabelStyle.Render("Last event:"), m.lastEvent.Code())
		if m.lastEvent.Event != nil {
			summary += " " + statsValueStyle.Render(m.lastEvent.Event.Name)
		}
		if m.lastEvent.Address != nil && *m.lastEvent.Address != sia.UnknownAddress {
			summary += headerStyle.Render(fmt.Sprintf(" (%s %d)", m.lastEvent.AddressType, *m.lastEvent.Address))
		}
		s.WriteString(summary)
		s.WriteString("\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.log.View()))

	return s.String()
}
