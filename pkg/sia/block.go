// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"errors"
	"fmt"
	"time"
)

// ErrPayloadTooLong is returned when a block is built with more payload
// bytes than the 6-bit length field can describe.
var ErrPayloadTooLong = errors.New("sia: payload exceeds 63 bytes")

// Block is one framed unit of the wire protocol.
type Block struct {
	header    byte
	function  FunctionCode
	payload   []byte
	checksum  byte
	timestamp time.Time
}

// BlockOption adjusts the header flags of a block under construction.
type BlockOption func(*Block)

// WithAckRequest sets the acknowledge-request flag.
func WithAckRequest() BlockOption {
	return func(b *Block) { b.header |= HeaderAckRequest }
}

// WithReverseChannel sets the reverse-channel flag.
func WithReverseChannel() BlockOption {
	return func(b *Block) { b.header |= HeaderReverseChannel }
}

// NewBlock builds an outbound block. The length field and checksum are
// computed here; callers never supply them.
func NewBlock(fc FunctionCode, payload []byte, opts ...BlockOption) (*Block, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: got %d", ErrPayloadTooLong, len(payload))
	}

	b := &Block{
		function:  fc,
		payload:   append([]byte(nil), payload...),
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.header = (b.header &^ HeaderLengthMask) | byte(len(payload))
	b.checksum = b.computeChecksum()

	return b, nil
}

// MustNewBlock is NewBlock for payloads known to fit. It panics on error.
func MustNewBlock(fc FunctionCode, payload []byte, opts ...BlockOption) *Block {
	b, err := NewBlock(fc, payload, opts...)
	if err != nil {
		panic(fmt.Sprintf("sia: %v", err))
	}
	return b
}

func (b *Block) computeChecksum() byte {
	sum := CalculateChecksum([]byte{b.header, byte(b.function)})
	for _, p := range b.payload {
		sum ^= p
	}
	return sum
}

// Header returns the raw header byte
func (b *Block) Header() byte {
	return b.header
}

// Length returns the payload length encoded in the header
func (b *Block) Length() int {
	return int(b.header & HeaderLengthMask)
}

// AckRequested reports whether the sender asked for an acknowledgement
func (b *Block) AckRequested() bool {
	return b.header&HeaderAckRequest != 0
}

// ReverseChannel reports whether the reverse-channel flag is set
func (b *Block) ReverseChannel() bool {
	return b.header&HeaderReverseChannel != 0
}

// Function returns the block's function code
func (b *Block) Function() FunctionCode {
	return b.function
}

// Payload returns the payload bytes
func (b *Block) Payload() []byte {
	return b.payload
}

// Checksum returns the trailing checksum byte
func (b *Block) Checksum() byte {
	return b.checksum
}

// Timestamp returns the time the block was built or framed
func (b *Block) Timestamp() time.Time {
	return b.timestamp
}

// Size returns the number of bytes the block occupies on the wire
func (b *Block) Size() int {
	return len(b.payload) + BlockOverhead
}

// Bytes serializes the block: header, function code, payload, checksum.
// The checksum is recomputed immediately before serialization.
func (b *Block) Bytes() []byte {
	b.checksum = b.computeChecksum()

	out := make([]byte, 0, b.Size())
	out = append(out, b.header, byte(b.function))
	out = append(out, b.payload...)
	out = append(out, b.checksum)
	return out
}

// ParseBlock reads exactly one block out of already-framed bytes. It is the
// inverse of Bytes and validates the length and checksum.
func ParseBlock(data []byte) (*Block, error) {
	if len(data) < MinBlockSize {
		return nil, fmt.Errorf("block too short: %d bytes", len(data))
	}
	size := int(data[0]&HeaderLengthMask) + BlockOverhead
	if len(data) != size {
		return nil, fmt.Errorf("block length mismatch: header says %d bytes, got %d", size, len(data))
	}
	return parseFramed(data)
}

// checksumError reports a framed block whose trailing byte does not match
// the XOR of everything before it.
type checksumError struct {
	expected byte
	received byte
}

func (e *checksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", e.expected, e.received)
}

// parseFramed builds a block from bytes whose length already matches the
// header. The payload is copied out of data.
func parseFramed(data []byte) (*Block, error) {
	size := len(data)
	fc := FunctionCode(data[1])
	if !fc.Valid() {
		return nil, fmt.Errorf("invalid function code 0x%02X", data[1])
	}
	expected := CalculateChecksum(data[:size-1])
	if expected != data[size-1] {
		return nil, &checksumError{expected: expected, received: data[size-1]}
	}

	return &Block{
		header:    data[0],
		function:  fc,
		payload:   append([]byte(nil), data[2:size-1]...),
		checksum:  data[size-1],
		timestamp: time.Now(),
	}, nil
}
