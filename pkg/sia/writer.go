// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"fmt"
	"io"
	"sync"
)

// BlockWriter serializes blocks onto a transport. It is safe for concurrent
// use, so replies from the decode loop and commands from elsewhere can share
// one connection.
type BlockWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBlockWriter creates a writer over w.
func NewBlockWriter(w io.Writer) *BlockWriter {
	return &BlockWriter{w: w}
}

// SendBlock writes the serialized block in a single Write call.
func (bw *BlockWriter) SendBlock(b *Block) error {
	data := b.Bytes()

	bw.mu.Lock()
	defer bw.mu.Unlock()

	if _, err := bw.w.Write(data); err != nil {
		return fmt.Errorf("failed to send %s: %w", FormatFunctionCode(b.Function()), err)
	}
	return nil
}
