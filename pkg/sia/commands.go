// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

// Builder functions for the canonical outbound blocks a receiver sends.

// NewAckAndStandby creates an ACK AND STANDBY block (0x36).
func NewAckAndStandby() *Block {
	return MustNewBlock(FuncAckAndStandby, nil)
}

// NewAckAndDisconnect creates an ACK AND DISCONNECT block (0x37).
func NewAckAndDisconnect() *Block {
	return MustNewBlock(FuncAckAndDisconn, nil)
}

// NewAcknowledge creates an ACKNOWLEDGE block (0x38), or an ALT ACKNOWLEDGE
// block (0x09) when alt is set.
func NewAcknowledge(alt bool) *Block {
	if alt {
		return MustNewBlock(FuncAltAcknowledge, nil)
	}
	return MustNewBlock(FuncAcknowledge, nil)
}

// NewReject creates a REJECT block (0x39), or an ALT REJECT block (0x19)
// when alt is set.
func NewReject(alt bool) *Block {
	if alt {
		return MustNewBlock(FuncAltReject, nil)
	}
	return MustNewBlock(FuncReject, nil)
}

// NewRemoteLogin creates a REMOTE LOGIN block (0x3F) carrying the panel
// access code. The panel is asked to acknowledge it.
func NewRemoteLogin(accessCode string) (*Block, error) {
	return NewBlock(FuncRemoteLogin, []byte(accessCode), WithAckRequest())
}

// NewConfiguration creates a CONFIGURATION block (0x40) advertising the
// receiver's capabilities, e.g. "AL4B1" (level 4, buffer class B1).
func NewConfiguration(capabilities string) (*Block, error) {
	return NewBlock(FuncConfiguration, []byte(capabilities), WithAckRequest())
}
