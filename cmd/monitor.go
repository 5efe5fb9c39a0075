// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/siastat/internal/logging"
	"github.com/Thermoquad/siastat/pkg/sia"
)

var (
	showAll           bool
	statsInterval     int
	useTUI            bool
	monitorListenOnly bool
	noReconnect       bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Receive events and track protocol errors",
	Long: `Act as a receiver for the panel: assemble events, answer every block that
asks for it, and track protocol health with statistics.

This command detects:
  - Checksum failures and resynchronization
  - Blocks the receiver could not handle (reported back to the panel as REJECT)
  - Unknown event codes and malformed fields
  - Events whose content looks wrong (missing or unexpected addresses, bad
    dates and times)
  - Protocol level changes

By default only events and problems are displayed. Use --show-all to display
every block too.

When the connection drops, siastat reconnects with exponential backoff and
restarts the session at the configured protocol level.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all blocks (not just events and errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics print interval in text mode (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().BoolVar(&monitorListenOnly, "listen-only", false, "Never transmit replies")
	monitorCmd.Flags().BoolVar(&noReconnect, "no-reconnect", false, "Exit when the connection is lost")
}

// Messages from the reader goroutine. The TUI receives them through
// tea.Program.Send, text mode through a channel.
type blockMsg struct {
	block *sia.Block
}
type eventMsg struct {
	event     *sia.Event
	anomalies []sia.ValidationError
}
type noticeMsg struct {
	text    string
	isError bool
}
type statsMsg struct {
	stats sia.Statistics
	level int
}
type syncMsg struct {
	resyncs uint64
}
type connectionLostMsg struct{}
type reconnectedMsg struct {
	connInfo string
}
type readerDoneMsg struct{}

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	emit     func(any)
	done     chan struct{}
}

func (cm *connectionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

// Write sends to whichever connection is current, so replies keep working
// across reconnects.
func (cm *connectionManager) Write(p []byte) (int, error) {
	conn := cm.getConn()
	if conn == nil {
		return 0, errors.New("not connected")
	}
	return conn.Write(p)
}

func validateMonitorFlags() error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive, got %d", statsInterval)
	}
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := validateMonitorFlags(); err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	cm := &connectionManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	if useTUI {
		// The session captures the logger, so swap it first
		logging.Set(zap.New(newNoticeCore(logging.GetLogger().Core(), func(msg noticeMsg) {
			if cm.emit != nil {
				cm.emit(msg)
			}
		})))
	}

	var sender sia.Sender
	if !monitorListenOnly {
		sender = sia.NewBlockWriter(cm)
	}
	session, err := newSession(lineReceiver{emit: func(line string) {
		cm.emit(noticeMsg{text: line})
	}}, sender)
	if err != nil {
		conn.Close()
		return err
	}

	defer func() {
		close(cm.done)
		if conn := cm.getConn(); conn != nil {
			conn.Close()
		}
	}()

	if useTUI {
		return runTUIMode(cm, session)
	}
	return runTextMode(cm, session)
}

// readerLoop feeds the session with automatic reconnection
func (cm *connectionManager) readerLoop(session *sia.Session) {
	synchronized := false
	for {
		select {
		case <-cm.done:
			return
		default:
		}

		err := readChunks(cm.getConn(), func(data []byte) error {
			level := session.Level()
			err := feedBlocks(session, data,
				func(b *sia.Block) {
					if !synchronized {
						synchronized = true
						cm.emit(syncMsg{resyncs: session.Framer().Resyncs()})
					}
					cm.emit(blockMsg{block: b})
				},
				func(ev *sia.Event, anomalies []sia.ValidationError) {
					cm.emit(eventMsg{event: ev, anomalies: anomalies})
				},
			)
			if err != nil {
				session.Framer().Reset()
				cm.emit(noticeMsg{text: err.Error(), isError: true})
			}
			if session.Level() != level {
				cm.emit(noticeMsg{text: fmt.Sprintf("Protocol level %d -> %d", level, session.Level())})
			}
			cm.emit(statsMsg{stats: *session.Stats(), level: session.Level()})
			return nil
		})
		if err != nil {
			logging.Error("Reader failed", zap.Error(err))
		}

		select {
		case <-cm.done:
			return
		default:
		}

		cm.emit(connectionLostMsg{})
		if noReconnect || !cm.reconnect() {
			cm.emit(readerDoneMsg{})
			return
		}

		// A new connection starts a new conversation with the panel
		session.Reset()
		synchronized = false
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	// Close old connection
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)
			cm.emit(reconnectedMsg{connInfo: connInfo})
			return true
		}
		logging.Warn("Reconnect failed", zap.Error(err), zap.Duration("backoff", backoff))

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(cm *connectionManager, session *sia.Session) error {
	m := initialModel(cm.connInfo, showAll, session.Level())
	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.emit = func(msg any) { p.Send(msg) }

	go cm.readerLoop(session)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// runTextMode runs the monitor with plain line output
func runTextMode(cm *connectionManager, session *sia.Session) error {
	fmt.Printf("Siastat - Monitor\n")
	fmt.Printf("Connection: %s\n", cm.connInfo)
	fmt.Printf("Protocol level: %d\n", session.Level())
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All blocks\n")
	} else {
		fmt.Printf("Mode: Events and errors\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	latest := statsMsg{stats: *session.Stats(), level: session.Level()}

	msgs := make(chan any, 64)
	cm.emit = func(msg any) { msgs <- msg }
	go cm.readerLoop(session)

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case msg := <-msgs:
			switch msg := msg.(type) {
			case syncMsg:
				if msg.resyncs > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d bytes\n\n", msg.resyncs)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			case blockMsg:
				if showAll {
					fmt.Print(sia.FormatBlock(msg.block))
				}
			case eventMsg:
				printEvent(msg.event, msg.anomalies)
			case noticeMsg:
				printNotice(msg.text, msg.isError)
			case statsMsg:
				latest = msg
			case connectionLostMsg:
				printNotice("Connection lost, reconnecting...", true)
			case reconnectedMsg:
				printNotice("Reconnected: "+msg.connInfo, false)
			case readerDoneMsg:
				fmt.Println()
				fmt.Print(latest.stats.String())
				return nil
			}

		case <-statsTicker.C:
			// Print statistics
			fmt.Println()
			fmt.Printf("Protocol level: %d\n", latest.level)
			fmt.Print(latest.stats.String())
			fmt.Println()
		}
	}
}

// printNotice prints a session notification in highlighted format
func printNotice(text string, isError bool) {
	timestamp := time.Now().Format("15:04:05.000")
	if isError {
		fmt.Printf("[%s] \033[1;31mERROR:\033[0m %s\n", timestamp, text)
		return
	}
	fmt.Printf("[%s] \033[1;36m%s\033[0m\n", timestamp, text)
}

// printEvent prints an event, with its anomalies highlighted
func printEvent(ev *sia.Event, anomalies []sia.ValidationError) {
	fmt.Print(sia.FormatEvent(ev))
	for i, a := range anomalies {
		fmt.Printf("  Issue %d: \033[1;33m%s\033[0m (%s)\n", i+1, a.Message, a.Type)
	}
	fmt.Println()
}
