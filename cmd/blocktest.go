// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/siastat/pkg/sia"
)

var (
	blockTestTimeout int
)

var blockTestCmd = &cobra.Command{
	Use:   "block_test",
	Short: "Test connection by waiting for a valid SIA block",
	Long: `Wait for a valid SIA block on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any block
that passes the checksum. Noise and corrupted blocks are skipped. Nothing is
transmitted, so the panel is never acknowledged.

Exit codes:
  0 - Block received before timeout
  1 - Timeout reached without receiving a valid block
  2 - Connection error

Useful for checking wiring, baud rate and WebSocket bridges.`,
	RunE: runBlockTest,
}

func init() {
	rootCmd.AddCommand(blockTestCmd)
	blockTestCmd.Flags().IntVar(&blockTestTimeout, "timeout", 10, "Timeout in seconds to wait for a block")
}

func runBlockTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Siastat - Block Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", blockTestTimeout)
	fmt.Printf("Waiting for valid SIA block...\n\n")

	framer := sia.NewFramer()
	buf := make([]byte, 128)

	// Channel for block reception
	blockChan := make(chan *sia.Block, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			data := buf[:n]
			for len(data) > 0 {
				chunk := data[:min(len(data), framer.Free())]
				data = data[len(chunk):]

				block, ingestErr := framer.Ingest(chunk)
				if ingestErr != nil {
					framer.Reset()
					continue
				}
				if block != nil {
					resyncs := framer.Resyncs()
					if resyncs > 0 {
						fmt.Printf("(resynchronized %d times before first block)\n", resyncs)
					}
					blockChan <- block
					return
				}
			}
		}
	}()

	// Wait for block or timeout
	select {
	case block := <-blockChan:
		fmt.Printf("SUCCESS: Received valid block\n")
		fmt.Printf("  Function: %s (0x%02X)\n", sia.FormatFunctionCode(block.Function()), uint8(block.Function()))
		fmt.Printf("  Length: %d bytes\n", block.Length())
		fmt.Printf("  Ack requested: %t\n", block.AckRequested())
		fmt.Printf("  Checksum: 0x%02X\n", block.Checksum())
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(blockTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid block received within %d seconds\n", blockTestTimeout)
		os.Exit(1)
	}

	return nil
}
