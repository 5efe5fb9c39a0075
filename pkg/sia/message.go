// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"fmt"
	"time"
)

// Date is a panel-reported MM-DD-YY date. Year holds the two reported digits.
type Date struct {
	Month int
	Day   int
	Year  int
}

func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%02d", d.Month, d.Day, d.Year)
}

// TimeOfDay is a panel-reported HH:MM[:SS] time.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	HasSeconds bool
}

func (t TimeOfDay) String() string {
	if !t.HasSeconds {
		return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Fields holds everything a message can carry. A nil pointer means the field
// was never reported.
type Fields struct {
	AccountID *int
	OriginID  *int
	Event     *EventCode

	Date *Date
	Time *TimeOfDay

	SubscriberID  *int
	AreaID        *int
	PeripheralID  *int
	AutomatedID   *int
	TelephoneID   *int
	Level         *int
	Value         *int
	Path          *int
	RouteGroup    *int
	SubSubscriber *int

	// AddressType is the label of the event's address kind, e.g. "Zone".
	AddressType string
	// Address is the event's address number; UnknownAddress when the panel
	// reported zero.
	Address *int

	Units     *int
	UnitsType string

	Text *string
}

// Message is the in-progress accumulation for one logical SIA message.
type Message struct {
	Fields

	// raw holds the bytes of the last event-bearing block.
	raw []byte
}

// Raw returns the retained bytes of the last event-bearing block.
func (m *Message) Raw() []byte {
	return m.raw
}

// Reset clears every field.
func (m *Message) Reset() {
	*m = Message{}
}

// Event is a completed message. It is never mutated after the session hands
// it out.
type Event struct {
	Fields

	// Raw holds the bytes of the last event-bearing block of the message.
	Raw []byte
	// ProtocolLevel is the session level when the message completed.
	ProtocolLevel int
	Timestamp     time.Time
}

// Code returns the 2-character event code, or "" if none was decoded.
func (e *Event) Code() string {
	if e.Event == nil {
		return ""
	}
	return e.Event.Code
}

func intPtr(v int) *int {
	return &v
}
