// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/siastat/pkg/sia"
)

var rawLogListenOnly bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw block log in human-readable format",
	Long: `Continuously decode and display SIA blocks as they arrive.

Every framed block is printed with timestamp, function code, header flags and
payload. Completed events are printed in full after the block that completed
them, followed by any anomalies found in their content.

By default siastat answers the panel (acknowledge/reject) the way a receiver
would. Use --listen-only when tapping a line that already has a receiver.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogListenOnly, "listen-only", false, "Never transmit replies")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var sender sia.Sender
	if !rawLogListenOnly {
		sender = sia.NewBlockWriter(conn)
	}

	emit := func(line string) { fmt.Println(line) }
	session, err := newSession(lineReceiver{emit: emit}, sender)
	if err != nil {
		return err
	}

	fmt.Printf("Siastat - Raw Block Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Protocol level: %d\n", session.Level())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	onBlock := func(b *sia.Block) {
		fmt.Print(sia.FormatBlock(b))
	}
	onEvent := func(ev *sia.Event, anomalies []sia.ValidationError) {
		fmt.Print(sia.FormatEvent(ev))
		printAnomalies(emit, anomalies)
	}

	err = readChunks(conn, func(data []byte) error {
		if err := feedBlocks(session, data, onBlock, onEvent); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			session.Framer().Reset()
		}
		return nil
	})

	fmt.Print("\n" + session.Stats().String())
	return err
}
