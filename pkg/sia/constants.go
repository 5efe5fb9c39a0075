// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sia provides a Go implementation of the SIA DC-03 serial alarm
// transmission protocol (levels 2 to 4).
//
// The package turns a raw byte stream from an intrusion or access-control
// panel into typed security events and produces the acknowledge/reject
// replies the protocol requires. It contains the block codec and checksum,
// a resynchronizing framer, the in-payload field decoder, the event code
// catalog and a per-panel Session that assembles multi-block messages.
package sia

// Block header layout
const (
	HeaderLengthMask     = 0x3F // bits 0-5: payload length
	HeaderAckRequest     = 0x40 // bit 6: acknowledge requested
	HeaderReverseChannel = 0x80 // bit 7: reverse channel enable
)

// Block size limits
const (
	BlockOverhead  = 3 // header + function code + checksum
	MaxPayloadSize = HeaderLengthMask
	MaxBlockSize   = MaxPayloadSize + BlockOverhead
	MinBlockSize   = BlockOverhead
	FramerCapacity = 2 * MaxBlockSize
)

// Checksum (column parity) seed
const checksumSeed = 0xFF

// Text sub-protocol separators
const (
	FieldSeparator = '/'
	UnitsSeparator = '*'
)

// Protocol levels
const (
	Level2 = 2
	Level3 = 3
	Level4 = 4

	MinLevel = Level2
	MaxLevel = Level4
)

// DefaultCapabilities advertises level 4 support with buffer size class B1.
const DefaultCapabilities = "AL4B1"

// FunctionCode identifies the role of a block on the wire.
type FunctionCode uint8

// System function codes
const (
	FuncEndOfData      FunctionCode = 0x30
	FuncWait           FunctionCode = 0x31
	FuncAbort          FunctionCode = 0x32
	FuncReserved3      FunctionCode = 0x33
	FuncReserved4      FunctionCode = 0x34
	FuncReserved5      FunctionCode = 0x35
	FuncAckAndStandby  FunctionCode = 0x36
	FuncAckAndDisconn  FunctionCode = 0x37
	FuncAcknowledge    FunctionCode = 0x38
	FuncAltAcknowledge FunctionCode = 0x09
	FuncReject         FunctionCode = 0x39
	FuncAltReject      FunctionCode = 0x19
)

// Info function codes
const (
	FuncControl       FunctionCode = 0x43 // 'C'
	FuncEnvironmental FunctionCode = 0x45 // 'E'
	FuncNewEvent      FunctionCode = 0x4E // 'N'
	FuncOldEvent      FunctionCode = 0x4F // 'O'
	FuncProgram       FunctionCode = 0x50 // 'P'
)

// Special function codes
const (
	FuncConfiguration FunctionCode = 0x40 // '@'
	FuncRemoteLogin   FunctionCode = 0x3F // '?'
	FuncAccountID     FunctionCode = 0x23 // '#'
	FuncOriginID      FunctionCode = 0x26 // '&'
	FuncASCII         FunctionCode = 0x41 // 'A'
	FuncExtended      FunctionCode = 0x58 // 'X'
	FuncListenIn      FunctionCode = 0x4C // 'L'
	FuncVideoRequest  FunctionCode = 0x56 // 'V'
	FuncVideoFrame    FunctionCode = 0x76 // 'v'
	FuncVideo         FunctionCode = 0x49 // 'I'
)

var validFunctionCodes = map[FunctionCode]struct{}{
	FuncEndOfData:      {},
	FuncWait:           {},
	FuncAbort:          {},
	FuncReserved3:      {},
	FuncReserved4:      {},
	FuncReserved5:      {},
	FuncAckAndStandby:  {},
	FuncAckAndDisconn:  {},
	FuncAcknowledge:    {},
	FuncAltAcknowledge: {},
	FuncReject:         {},
	FuncAltReject:      {},
	FuncControl:        {},
	FuncEnvironmental:  {},
	FuncNewEvent:       {},
	FuncOldEvent:       {},
	FuncProgram:        {},
	FuncConfiguration:  {},
	FuncRemoteLogin:    {},
	FuncAccountID:      {},
	FuncOriginID:       {},
	FuncASCII:          {},
	FuncExtended:       {},
	FuncListenIn:       {},
	FuncVideoRequest:   {},
	FuncVideoFrame:     {},
	FuncVideo:          {},
}

// Valid reports whether fc is one of the defined function codes.
func (fc FunctionCode) Valid() bool {
	_, ok := validFunctionCodes[fc]
	return ok
}

// noReply lists function codes that never get an automatic ack/reject.
var noReply = map[FunctionCode]struct{}{
	FuncReject:         {},
	FuncAltReject:      {},
	FuncAcknowledge:    {},
	FuncAltAcknowledge: {},
	FuncConfiguration:  {},
	FuncControl:        {},
	FuncExtended:       {},
}

// AddressKind classifies what the address number of an event denotes.
type AddressKind int

// Address field kinds
const (
	AddressUnused AddressKind = iota
	AddressZone
	AddressArea
	AddressUser
	AddressDoor
	AddressDealerID
	AddressExpander
	AddressLine
	AddressRelay
	AddressPoint
	AddressPrinter
	AddressManufacturer
)

var addressKindNames = map[string]AddressKind{
	"unused":       AddressUnused,
	"zone":         AddressZone,
	"area":         AddressArea,
	"user":         AddressUser,
	"door":         AddressDoor,
	"dealer_id":    AddressDealerID,
	"expander":     AddressExpander,
	"line":         AddressLine,
	"relay":        AddressRelay,
	"point":        AddressPoint,
	"printer":      AddressPrinter,
	"manufacturer": AddressManufacturer,
}

// Label returns the descriptive label stored on decoded events.
func (k AddressKind) Label() string {
	switch k {
	case AddressZone:
		return "Zone"
	case AddressArea:
		return "Area"
	case AddressUser:
		return "User"
	case AddressDoor:
		return "Door"
	case AddressDealerID:
		return "Dealer ID"
	case AddressExpander:
		return "Expander"
	case AddressLine:
		return "Line"
	case AddressRelay:
		return "Relay"
	case AddressPoint:
		return "Point"
	case AddressPrinter:
		return "Printer"
	case AddressManufacturer:
		return "Manufacturer-defined"
	default:
		return "Unused"
	}
}

// UnknownAddress is stored when a panel reports address number zero.
const UnknownAddress = -1
