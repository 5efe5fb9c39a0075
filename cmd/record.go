// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/siastat/internal/capture"
	"github.com/Thermoquad/siastat/pkg/sia"
)

var recordListenOnly bool

var recordCmd = &cobra.Command{
	Use:   "record FILE",
	Short: "Record raw traffic to a capture file",
	Long: `Record every byte received from the panel, and every reply sent to it, into
a CBOR capture file that can be decoded later with 'siastat replay'. An
existing file is appended to.

Traffic is decoded while recording, and one line is printed per completed
event so you can see the capture is healthy.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().BoolVar(&recordListenOnly, "listen-only", false, "Never transmit replies")
}

func runRecord(cmd *cobra.Command, args []string) error {
	output := args[0]
	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	rec := &capture.Recorder{Dest: f}

	var sender sia.Sender
	if !recordListenOnly {
		sender = sia.NewBlockWriter(rec.Writer(conn))
	}
	session, err := newSession(nil, sender)
	if err != nil {
		return err
	}

	fmt.Printf("Siastat - Record\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Output: %s\n", output)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	onEvent := func(ev *sia.Event, anomalies []sia.ValidationError) {
		account := "-"
		if ev.AccountID != nil {
			account = fmt.Sprintf("%d", *ev.AccountID)
		}
		fmt.Printf("[%s] account %s event %s (%d anomalies)\n",
			ev.Timestamp.Format("15:04:05"), account, ev.Code(), len(anomalies))
	}

	err = readChunks(conn, func(data []byte) error {
		if err := rec.Record(capture.Inbound, data); err != nil {
			return err
		}
		if err := feedBlocks(session, data, nil, onEvent); err != nil {
			session.Framer().Reset()
		}
		return nil
	})

	fmt.Print("\n" + session.Stats().String())
	return err
}
