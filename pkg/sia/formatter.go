// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"fmt"
	"strings"
)

// FormatBlock formats a block into a human-readable string
func FormatBlock(b *Block) string {
	timestamp := b.timestamp.Format("15:04:05.000")
	name := FormatFunctionCode(b.function)

	var flags []string
	if b.AckRequested() {
		flags = append(flags, "ack")
	}
	if b.ReverseChannel() {
		flags = append(flags, "rev")
	}
	flagText := ""
	if len(flags) > 0 {
		flagText = " [" + strings.Join(flags, ",") + "]"
	}

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d%s\n", timestamp, name, uint8(b.function), b.Length(), flagText)

	if len(b.payload) > 0 {
		result += FormatPayload(b.function, b.payload)
	}

	return result
}

// FormatFunctionCode returns the human-readable name for a function code
func FormatFunctionCode(fc FunctionCode) string {
	switch fc {
	// System
	case FuncEndOfData:
		return "END_OF_DATA"
	case FuncWait:
		return "WAIT"
	case FuncAbort:
		return "ABORT"
	case FuncReserved3, FuncReserved4, FuncReserved5:
		return "RESERVED"
	case FuncAckAndStandby:
		return "ACK_AND_STANDBY"
	case FuncAckAndDisconn:
		return "ACK_AND_DISCONNECT"
	case FuncAcknowledge:
		return "ACKNOWLEDGE"
	case FuncAltAcknowledge:
		return "ALT_ACKNOWLEDGE"
	case FuncReject:
		return "REJECT"
	case FuncAltReject:
		return "ALT_REJECT"

	// Info
	case FuncControl:
		return "CONTROL"
	case FuncEnvironmental:
		return "ENVIRONMENTAL"
	case FuncNewEvent:
		return "NEW_EVENT"
	case FuncOldEvent:
		return "OLD_EVENT"
	case FuncProgram:
		return "PROGRAM"

	// Special
	case FuncConfiguration:
		return "CONFIGURATION"
	case FuncRemoteLogin:
		return "REMOTE_LOGIN"
	case FuncAccountID:
		return "ACCOUNT_ID"
	case FuncOriginID:
		return "ORIGIN_ID"
	case FuncASCII:
		return "ASCII"
	case FuncExtended:
		return "EXTENDED"
	case FuncListenIn:
		return "LISTEN_IN"
	case FuncVideoRequest:
		return "VIDEO_REQUEST"
	case FuncVideoFrame:
		return "VIDEO_FRAME"
	case FuncVideo:
		return "VIDEO"

	default:
		return "UNKNOWN"
	}
}

// FormatPayload formats the payload based on function code
func FormatPayload(fc FunctionCode, payload []byte) string {
	switch fc {
	case FuncListenIn, FuncVideoRequest, FuncVideoFrame, FuncVideo:
		return fmt.Sprintf("  Data: % X\n", payload)
	case FuncRemoteLogin:
		return fmt.Sprintf("  Access code: %s\n", strings.Repeat("*", len(payload)))
	default:
		return fmt.Sprintf("  Payload: %q\n", payload)
	}
}

// FormatEvent formats a completed event into a human-readable string
func FormatEvent(e *Event) string {
	var sb strings.Builder

	code := e.Code()
	name := ""
	if e.Event != nil {
		name = e.Event.Name
	}
	fmt.Fprintf(&sb, "[%s] EVENT %s %s (level %d)\n", e.Timestamp.Format("15:04:05.000"), code, name, e.ProtocolLevel)

	if e.AccountID != nil {
		fmt.Fprintf(&sb, "  Account: %d\n", *e.AccountID)
	}
	if e.OriginID != nil {
		fmt.Fprintf(&sb, "  Origin: %d\n", *e.OriginID)
	}
	if e.Address != nil {
		if *e.Address == UnknownAddress {
			fmt.Fprintf(&sb, "  %s: unknown\n", e.AddressType)
		} else {
			fmt.Fprintf(&sb, "  %s: %d\n", e.AddressType, *e.Address)
		}
	}
	if e.Units != nil {
		fmt.Fprintf(&sb, "  Units: %d %s\n", *e.Units, e.UnitsType)
	}
	if e.Date != nil || e.Time != nil {
		sb.WriteString("  Reported:")
		if e.Date != nil {
			sb.WriteString(" " + e.Date.String())
		}
		if e.Time != nil {
			sb.WriteString(" " + e.Time.String())
		}
		sb.WriteString("\n")
	}

	optional := []struct {
		label string
		value *int
	}{
		{"Area", e.AreaID},
		{"Subscriber", e.SubscriberID},
		{"Peripheral", e.PeripheralID},
		{"Automated", e.AutomatedID},
		{"Telephone", e.TelephoneID},
		{"Level", e.Level},
		{"Value", e.Value},
		{"Path", e.Path},
		{"Route Group", e.RouteGroup},
		{"Sub-subscriber", e.SubSubscriber},
	}
	for _, o := range optional {
		if o.value != nil {
			fmt.Fprintf(&sb, "  %s: %d\n", o.label, *o.value)
		}
	}

	if e.Text != nil {
		fmt.Fprintf(&sb, "  Text: %q\n", *e.Text)
	}

	return sb.String()
}
