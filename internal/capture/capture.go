// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records raw transport traffic to a CBOR stream and reads
// it back for offline decoding.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of a recorded chunk relative to the receiver.
type Direction uint8

const (
	Inbound  Direction = 0 // panel -> receiver
	Outbound Direction = 1 // receiver -> panel
)

func (d Direction) String() string {
	if d == Outbound {
		return "TX"
	}
	return "RX"
}

// Chunk is one transport read or write.
type Chunk struct {
	Direction Direction `cbor:"1,keyasint"`
	Data      []byte    `cbor:"2,keyasint"`
	Timestamp time.Time `cbor:"3,keyasint"`
}

// Recorder appends chunks to Dest as a sequence of CBOR items. It is safe
// for concurrent use.
type Recorder struct {
	Dest io.Writer

	mu   sync.Mutex
	enc  *cbor.Encoder
	once sync.Once
	err  error
}

func (r *Recorder) init() {
	r.once.Do(func() {
		mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
		if err != nil {
			r.err = err
			return
		}
		r.enc = mode.NewEncoder(r.Dest)
	})
}

// Record writes one chunk, stamped with the current time.
func (r *Recorder) Record(dir Direction, data []byte) error {
	return r.Receive(Chunk{
		Direction: dir,
		Data:      append([]byte(nil), data...),
		Timestamp: time.Now(),
	})
}

// Receive writes a chunk as given.
func (r *Recorder) Receive(c Chunk) error {
	r.init()
	if r.err != nil {
		return fmt.Errorf("capture encoder: %w", r.err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(c); err != nil {
		return fmt.Errorf("while encoding: %w", err)
	}
	return nil
}

// Writer returns an io.Writer that forwards to w and records every write as
// an outbound chunk.
func (r *Recorder) Writer(w io.Writer) io.Writer {
	return &recordingWriter{w: w, rec: r}
}

type recordingWriter struct {
	w   io.Writer
	rec *Recorder
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	n, err := rw.w.Write(p)
	if n > 0 {
		if recErr := rw.rec.Record(Outbound, p[:n]); recErr != nil && err == nil {
			err = recErr
		}
	}
	return n, err
}

// ReadIn decodes chunks from r into out until EOF and closes out when done.
func ReadIn(out chan<- Chunk, r io.Reader) error {
	defer close(out)

	dec := cbor.NewDecoder(r)
	for {
		var c Chunk
		if err := dec.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("while decoding: %w", err)
		}

		out <- c
	}
}
