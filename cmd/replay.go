// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/siastat/internal/capture"
	"github.com/Thermoquad/siastat/pkg/sia"
)

var replayBlocks bool

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Decode a capture file offline",
	Long: `Decode a capture written by 'siastat record' without a connection.

Inbound bytes go through a session configured from --config, exactly as they
would live, but replies are discarded. Recorded outbound blocks are shown
with --blocks so the receiver side of the conversation can be inspected.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayBlocks, "blocks", false, "Print every block in both directions")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	emit := func(line string) { fmt.Println(line) }
	session, err := newSession(lineReceiver{emit: emit}, nil)
	if err != nil {
		return err
	}
	outbound := sia.NewFramer()

	var onBlock func(*sia.Block)
	if replayBlocks {
		onBlock = func(b *sia.Block) { fmt.Print("RX " + sia.FormatBlock(b)) }
	}
	onEvent := func(ev *sia.Event, anomalies []sia.ValidationError) {
		fmt.Print(sia.FormatEvent(ev))
		printAnomalies(emit, anomalies)
	}

	chunks := make(chan capture.Chunk, 64)

	var g errgroup.Group
	g.Go(func() error {
		return capture.ReadIn(chunks, f)
	})
	g.Go(func() error {
		for c := range chunks {
			switch c.Direction {
			case capture.Inbound:
				if err := feedBlocks(session, c.Data, onBlock, onEvent); err != nil {
					fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
					session.Framer().Reset()
				}
			case capture.Outbound:
				if replayBlocks {
					printOutbound(outbound, c.Data)
				}
			}
		}
		return nil
	})

	err = g.Wait()
	fmt.Print("\n" + session.Stats().String())
	return err
}

// printOutbound frames recorded replies. Replies are always whole blocks, so
// a failure here means the capture itself is damaged.
func printOutbound(framer *sia.Framer, data []byte) {
	if len(data) > framer.Free() {
		framer.Reset()
		data = data[:min(len(data), framer.Free())]
	}
	b, err := framer.Ingest(data)
	for err == nil && b != nil {
		fmt.Print("TX " + sia.FormatBlock(b))
		b, err = framer.Ingest(nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] outbound: %v\n", err)
		framer.Reset()
	}
}
