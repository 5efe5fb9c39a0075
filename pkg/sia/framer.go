// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrBufferOverrun is returned when more bytes are ingested than the framer
// can ever hold. It signals a defect in the caller's framing discipline and
// is the only fatal framing condition.
var ErrBufferOverrun = errors.New("sia: framer buffer overrun")

// Framer extracts validated blocks from an incrementally arriving byte
// stream. It never blocks: every Ingest call returns a block, nothing (more
// data needed), or ErrBufferOverrun.
//
// A Framer is owned by the goroutine reading the transport and is not safe
// for concurrent use.
type Framer struct {
	buf    []byte
	logger *zap.Logger

	onChecksumError func(candidate []byte)

	resyncs        uint64
	checksumErrors uint64
}

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithFramerLogger sets the logger used for resync diagnostics.
func WithFramerLogger(l *zap.Logger) FramerOption {
	return func(f *Framer) {
		if l != nil {
			f.logger = l
		}
	}
}

// OnChecksumError registers a callback invoked once per checksum mismatch,
// before the framer resynchronizes. The session uses it to notify the
// receiver and send a Reject.
func OnChecksumError(fn func(candidate []byte)) FramerOption {
	return func(f *Framer) { f.onChecksumError = fn }
}

// NewFramer creates a framer with a buffer of FramerCapacity bytes.
func NewFramer(opts ...FramerOption) *Framer {
	f := &Framer{
		buf:    make([]byte, 0, FramerCapacity),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Reset discards all buffered bytes.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}

// Buffered returns the number of bytes waiting in the framer.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Free returns how many more bytes can be ingested without an overrun.
func (f *Framer) Free() int {
	return FramerCapacity - len(f.buf)
}

// Resyncs returns the number of single-byte resynchronizations performed.
func (f *Framer) Resyncs() uint64 {
	return f.resyncs
}

// ChecksumErrors returns the number of candidate blocks that failed the
// checksum.
func (f *Framer) ChecksumErrors() uint64 {
	return f.checksumErrors
}

// Ingest appends data to the buffer and tries to extract one block.
//
// It returns (block, nil) when a block was framed, (nil, nil) when more data
// is needed, and (nil, ErrBufferOverrun) when data does not fit. Bytes left
// over after a block stay buffered; call Ingest(nil) to continue draining.
func (f *Framer) Ingest(data []byte) (*Block, error) {
	if len(data) > f.Free() {
		return nil, fmt.Errorf("%w: %d buffered + %d new > %d", ErrBufferOverrun, len(f.buf), len(data), FramerCapacity)
	}
	f.buf = append(f.buf, data...)

	for {
		if len(f.buf) < MinBlockSize {
			return nil, nil
		}

		fc := FunctionCode(f.buf[1])
		if !fc.Valid() {
			f.resync("invalid function code", zap.String("function", fmt.Sprintf("0x%02X", f.buf[1])))
			continue
		}

		size := int(f.buf[0]&HeaderLengthMask) + BlockOverhead
		if len(f.buf) < size {
			return nil, nil
		}

		block, err := parseFramed(f.buf[:size])
		if err != nil {
			var cs *checksumError
			if !errors.As(err, &cs) {
				f.resync(err.Error())
				continue
			}
			f.checksumErrors++
			f.logger.Warn("Block checksum failure",
				zap.String("function", FormatFunctionCode(fc)),
				zap.String("expected", fmt.Sprintf("0x%02X", cs.expected)),
				zap.String("received", fmt.Sprintf("0x%02X", cs.received)),
			)
			if f.onChecksumError != nil {
				f.onChecksumError(append([]byte(nil), f.buf[:size]...))
			}
			f.resync("checksum mismatch")
			continue
		}
		f.drop(size)

		return block, nil
	}
}

// resync drops exactly one byte from the front of the buffer.
func (f *Framer) resync(reason string, fields ...zap.Field) {
	f.resyncs++
	fields = append([]zap.Field{
		zap.String("reason", reason),
		zap.String("dropped", fmt.Sprintf("0x%02X", f.buf[0])),
	}, fields...)
	f.logger.Debug("Resynchronizing", fields...)
	f.drop(1)
}

func (f *Framer) drop(n int) {
	remaining := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:remaining]
}
