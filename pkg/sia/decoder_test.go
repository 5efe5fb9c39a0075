// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"errors"
	"strings"
	"testing"
)

func decode(t *testing.T, payload string, opts ...DecoderOption) (*Message, *Statistics) {
	t.Helper()
	stats := NewStatistics()
	d := NewDecoder(append([]DecoderOption{WithDecoderStatistics(stats)}, opts...)...)
	var m Message
	if err := d.Decode(payload, &m); err != nil {
		t.Fatalf("Decode(%q) failed: %v", payload, err)
	}
	return &m, stats
}

func TestDecode_TimeAndEvent(t *testing.T) {
	m, stats := decode(t, "ti12:30:45/BA0001")

	if m.Time == nil || m.Time.String() != "12:30:45" {
		t.Errorf("Expected time 12:30:45, got %v", m.Time)
	}
	if m.Event == nil || m.Event.Code != "BA" {
		t.Fatalf("Expected event BA, got %v", m.Event)
	}
	if m.Address == nil || *m.Address != 1 {
		t.Errorf("Expected address 1, got %v", m.Address)
	}
	if m.AddressType != "Zone" {
		t.Errorf("Expected address type Zone, got %q", m.AddressType)
	}
	if stats.FieldErrors != 0 || stats.UnknownCodes != 0 {
		t.Errorf("Unexpected errors: %+v", stats)
	}
}

func TestDecode_DateAndShortTime(t *testing.T) {
	m, _ := decode(t, "da01-02-24/ti1230/CL0")

	if m.Date == nil || *m.Date != (Date{Month: 1, Day: 2, Year: 24}) {
		t.Errorf("Unexpected date %v", m.Date)
	}
	if m.Time == nil || m.Time.HasSeconds || m.Time.String() != "12:30" {
		t.Errorf("Unexpected time %v", m.Time)
	}
	if m.Address == nil || *m.Address != UnknownAddress {
		t.Errorf("Address zero should decode as unknown, got %v", m.Address)
	}
	if m.AddressType != "User" {
		t.Errorf("Expected address type User, got %q", m.AddressType)
	}
}

func TestDecode_Modifiers(t *testing.T) {
	m, _ := decode(t, "id123456/ri0002/pi0007/ai12/ph1/lv3/va42/pt2/rg5/ss0009/BA1")

	tests := []struct {
		name     string
		value    *int
		expected int
	}{
		{"subscriber", m.SubscriberID, 123456},
		{"area", m.AreaID, 2},
		{"peripheral", m.PeripheralID, 7},
		{"automated", m.AutomatedID, 12},
		{"telephone", m.TelephoneID, 1},
		{"level", m.Level, 3},
		{"value", m.Value, 42},
		{"path", m.Path, 2},
		{"route group", m.RouteGroup, 5},
		{"sub-subscriber", m.SubSubscriber, 9},
		{"address", m.Address, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == nil {
				t.Fatal("Field not set")
			}
			if *tt.value != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, *tt.value)
			}
		})
	}
}

func TestDecode_Units(t *testing.T) {
	m, _ := decode(t, "BA0012*25C")

	if m.Address == nil || *m.Address != 12 {
		t.Errorf("Expected address 12, got %v", m.Address)
	}
	if m.Units == nil || *m.Units != 25 {
		t.Errorf("Expected units 25, got %v", m.Units)
	}
	if m.UnitsType != "C" {
		t.Errorf("Expected units type C, got %q", m.UnitsType)
	}
}

func TestDecode_EventWithoutAddress(t *testing.T) {
	m, _ := decode(t, "RP")

	if m.Event == nil || m.Event.Code != "RP" {
		t.Fatalf("Expected event RP, got %v", m.Event)
	}
	if m.Address != nil {
		t.Errorf("Expected no address, got %d", *m.Address)
	}
}

func TestDecode_UnknownCodeSkipped(t *testing.T) {
	logger, logs := observedLogger()
	m, stats := decode(t, "qq12/BA0005", WithDecoderLogger(logger))

	if m.Event == nil || m.Event.Code != "BA" || *m.Address != 5 {
		t.Errorf("Expected BA 5 after unknown code, got %+v", m.Fields)
	}
	if stats.UnknownCodes != 1 {
		t.Errorf("Expected 1 unknown code, got %d", stats.UnknownCodes)
	}
	if logs.FilterMessage("Unknown field code").Len() != 1 {
		t.Error("Expected unknown code to be logged")
	}
}

func TestDecode_MalformedFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"truncated date", "da01-02"},
		{"date without hyphens", "da01/02/24"},
		{"date letters", "daJA-02-24"},
		{"one digit time", "ti1"},
		{"time letters", "tiAB:CD"},
		{"modifier letters", "riXX"},
		{"empty modifier", "ri/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, stats := decode(t, tt.payload)
			if stats.FieldErrors == 0 {
				t.Error("Expected a field error")
			}
			if m.Date != nil || m.Time != nil || m.AreaID != nil {
				t.Errorf("Malformed field should not be stored: %+v", m.Fields)
			}
		})
	}
}

func TestDecode_RecoversAfterBadField(t *testing.T) {
	m, stats := decode(t, "ti1/BA0003")

	if stats.FieldErrors != 1 {
		t.Errorf("Expected 1 field error, got %d", stats.FieldErrors)
	}
	if m.Event == nil || *m.Address != 3 {
		t.Errorf("Expected BA 3 after bad time, got %+v", m.Fields)
	}
}

func TestDecode_ShortDateBeforeEvent(t *testing.T) {
	m, stats := decode(t, "da1-1/BA2")

	if m.Date != nil {
		t.Errorf("Short date should not be stored, got %v", m.Date)
	}
	if stats.FieldErrors != 1 {
		t.Errorf("Expected 1 field error, got %d", stats.FieldErrors)
	}
	if m.Event == nil || m.Event.Code != "BA" {
		t.Fatalf("Expected event BA after short date, got %v", m.Event)
	}
	if m.Address == nil || *m.Address != 2 {
		t.Errorf("Expected address 2, got %v", m.Address)
	}
}

func TestDecode_ShortPayload(t *testing.T) {
	d := NewDecoder()
	var m Message

	for _, p := range []string{"", "B"} {
		if err := d.Decode(p, &m); !errors.Is(err, ErrShortPayload) {
			t.Errorf("Decode(%q): expected ErrShortPayload, got %v", p, err)
		}
	}
}

func TestDecode_HexRadix(t *testing.T) {
	m, _ := decode(t, "BA001F", WithAddressRadix(16))
	if m.Address == nil || *m.Address != 31 {
		t.Errorf("Expected address 31, got %v", m.Address)
	}

	m, stats := decode(t, "BA001F")
	if m.Address != nil || stats.FieldErrors != 1 {
		t.Errorf("Base-10 decoder should reject hex address, got %v", m.Address)
	}
}

func TestDecode_LaterEventReplacesAddress(t *testing.T) {
	m, _ := decode(t, "BA0012*25C/RP")

	if m.Event.Code != "RP" {
		t.Errorf("Expected last event RP, got %s", m.Event.Code)
	}
	if m.Address != nil || m.Units != nil || m.UnitsType != "" {
		t.Errorf("Address and units should be cleared by a new event: %+v", m.Fields)
	}
}

func TestDecode_CustomCatalog(t *testing.T) {
	c, err := LoadCatalog(strings.NewReader("events:\n  - code: \"QZ\"\n    name: \"Custom\"\n    address: door\n"))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	m, stats := decode(t, "QZ0004/BA0001", WithCatalog(c))
	if m.Event == nil || m.Event.Code != "QZ" || m.AddressType != "Door" {
		t.Errorf("Expected custom code, got %+v", m.Fields)
	}
	if stats.UnknownCodes != 1 {
		t.Errorf("BA is not in the custom catalog, expected 1 unknown code, got %d", stats.UnknownCodes)
	}
}
