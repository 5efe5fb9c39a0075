// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Session Test Helpers
// ============================================================

type recordingSender struct {
	blocks []*Block
	err    error
}

func (r *recordingSender) SendBlock(b *Block) error {
	if r.err != nil {
		return r.err
	}
	r.blocks = append(r.blocks, b)
	return nil
}

func (r *recordingSender) functions() []FunctionCode {
	out := make([]FunctionCode, 0, len(r.blocks))
	for _, b := range r.blocks {
		out = append(out, b.Function())
	}
	return out
}

type recordingReceiver struct {
	controls     []string
	extended     []string
	configs      int
	acks         int
	rejects      int
	passthroughs []FunctionCode
}

func (r *recordingReceiver) Control(text string) { r.controls = append(r.controls, text) }
func (r *recordingReceiver) Configuration() { r.configs++ }
func (r *recordingReceiver) Extended(text string, n int) { r.extended = append(r.extended, text) }
func (r *recordingReceiver) Acknowledge() { r.acks++ }
func (r *recordingReceiver) Reject() { r.rejects++ }
func (r *recordingReceiver) Passthrough(fc FunctionCode, _ []byte) {
	r.passthroughs = append(r.passthroughs, fc)
}

func newTestSession(cfg SessionConfig) (*Session, *recordingSender, *recordingReceiver) {
	snd := &recordingSender{}
	rcv := &recordingReceiver{}
	cfg.Sender = snd
	cfg.Receiver = rcv
	return NewSession(cfg), snd, rcv
}

func feed(t *testing.T, s *Session, data []byte) []*Event {
	t.Helper()
	events, err := s.Feed(data)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	return events
}

func sameFunctions(a, b []FunctionCode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ============================================================
// Message Assembly Tests
// ============================================================

func TestSession_Level2Event(t *testing.T) {
	s, snd, _ := newTestSession(SessionConfig{})

	eventBlock := wire(FuncNewEvent, "ri0002/CL0001", true)
	events := feed(t, s, concat(
		wire(FuncAccountID, "1234", true),
		eventBlock,
	))

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.AccountID == nil || *ev.AccountID != 1234 {
		t.Errorf("Expected account 1234, got %v", ev.AccountID)
	}
	if ev.Code() != "CL" || ev.AddressType != "User" || *ev.Address != 1 {
		t.Errorf("Unexpected event: %s", FormatEvent(ev))
	}
	if ev.AreaID == nil || *ev.AreaID != 2 {
		t.Errorf("Expected area 2, got %v", ev.AreaID)
	}
	if ev.ProtocolLevel != Level2 {
		t.Errorf("Expected level 2, got %d", ev.ProtocolLevel)
	}
	if !bytes.Equal(ev.Raw, eventBlock) {
		t.Errorf("Raw bytes differ: % X vs % X", ev.Raw, eventBlock)
	}

	want := []FunctionCode{FuncAcknowledge, FuncAcknowledge}
	if !sameFunctions(snd.functions(), want) {
		t.Errorf("Expected two acknowledgements, got %v", snd.functions())
	}
	if s.Stats().Events != 1 || s.Stats().AcksSent != 2 {
		t.Errorf("Unexpected statistics:\n%s", s.Stats())
	}
}

func TestSession_Level3NeedsText(t *testing.T) {
	s, _, _ := newTestSession(SessionConfig{InitialLevel: Level3})

	events := feed(t, s, concat(
		wire(FuncAccountID, "1234", true),
		wire(FuncNewEvent, "BA0003", true),
	))
	if len(events) != 0 {
		t.Fatalf("Level 3 event must wait for text, got %d events", len(events))
	}

	events = feed(t, s, wire(FuncASCII, "FRONT DOOR", true))
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Text == nil || *events[0].Text != "FRONT DOOR" {
		t.Errorf("Expected text, got %v", events[0].Text)
	}
}

func TestSession_EventIsSnapshot(t *testing.T) {
	s, _, _ := newTestSession(SessionConfig{})

	events := feed(t, s, concat(
		wire(FuncAccountID, "1234", false),
		wire(FuncNewEvent, "BA0001", false),
	))
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	feed(t, s, wire(FuncAccountID, "9999", false))
	if *events[0].AccountID != 1234 {
		t.Errorf("Completed event was mutated: account %d", *events[0].AccountID)
	}
	if p := s.Pending(); p.AccountID == nil || *p.AccountID != 9999 || p.Event != nil {
		t.Errorf("Pending message should hold only the new account: %+v", p.Fields)
	}
}

func TestSession_ReplaceAccount(t *testing.T) {
	logger, logs := observedLogger()
	s, _, _ := newTestSession(SessionConfig{Logger: logger})

	feed(t, s, concat(
		wire(FuncAccountID, "1111", false),
		wire(FuncAccountID, "2222", false),
	))

	if *s.Pending().AccountID != 2222 {
		t.Errorf("Expected account 2222, got %d", *s.Pending().AccountID)
	}
	if logs.FilterMessage("Replacing account id").Len() != 1 {
		t.Error("Expected replace warning")
	}
}

func TestSession_OriginID(t *testing.T) {
	s, _, _ := newTestSession(SessionConfig{})

	events := feed(t, s, concat(
		wire(FuncOriginID, "77", true),
		wire(FuncAccountID, "1234", true),
		wire(FuncNewEvent, "BA0001", true),
	))
	if len(events) != 1 || events[0].OriginID == nil || *events[0].OriginID != 77 {
		t.Errorf("Expected origin 77 on event, got %v", events)
	}
}

// ============================================================
// Protocol Level Tests
// ============================================================

func TestSession_ConfigurationRaisesLevel(t *testing.T) {
	s, snd, rcv := newTestSession(SessionConfig{})

	feed(t, s, wire(FuncConfiguration, "AL4B1", true))
	if s.Level() != Level4 {
		t.Errorf("Expected level 4, got %d", s.Level())
	}

	feed(t, s, wire(FuncConfiguration, "AL2", true))
	if s.Level() != Level4 {
		t.Errorf("Level must never go down, got %d", s.Level())
	}

	if len(snd.blocks) != 0 {
		t.Errorf("Configuration blocks get no reply, sent %v", snd.functions())
	}
	if rcv.configs != 2 {
		t.Errorf("Expected 2 configuration notifications, got %d", rcv.configs)
	}
}

func TestSession_ConfigurationHighestDigit(t *testing.T) {
	tests := []struct {
		payload  string
		expected int
	}{
		{"AL3", Level3},
		{"AL2AL4", Level4},
		{"B1AL3", Level3},
		{"AL9", MaxLevel},
		{"AL", Level2},
		{"XX3", Level2},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			s, _, _ := newTestSession(SessionConfig{})
			feed(t, s, wire(FuncConfiguration, tt.payload, false))
			if s.Level() != tt.expected {
				t.Errorf("Expected level %d, got %d", tt.expected, s.Level())
			}
		})
	}
}

func TestSession_MissedMessageStart(t *testing.T) {
	logger, logs := observedLogger()
	s, _, _ := newTestSession(SessionConfig{Logger: logger})

	events := feed(t, s, wire(FuncNewEvent, "BA0001", true))
	if len(events) != 0 {
		t.Fatalf("Expected no event, got %d", len(events))
	}
	if s.Level() != Level3 {
		t.Errorf("Expected level 3 after event without account, got %d", s.Level())
	}
	if s.Pending().Event != nil {
		t.Error("Partial event should have been discarded")
	}
	if logs.FilterMessage("Protocol level changed").Len() != 1 {
		t.Error("Expected level change to be logged")
	}

	events = feed(t, s, concat(
		wire(FuncAccountID, "1234", true),
		wire(FuncNewEvent, "BA0001", true),
		wire(FuncASCII, "ZONE 1", true),
	))
	if len(events) != 1 || events[0].ProtocolLevel != Level3 {
		t.Errorf("Expected one level-3 event, got %v", events)
	}
}

func TestSession_TextBeforeAccount(t *testing.T) {
	s, _, _ := newTestSession(SessionConfig{})

	feed(t, s, wire(FuncASCII, "HELLO", false))
	if s.Level() != Level3 || s.Pending().Text != nil {
		t.Errorf("Expected level 3 with text discarded, got level %d text %v", s.Level(), s.Pending().Text)
	}
}

func TestSession_Reset(t *testing.T) {
	s, _, _ := newTestSession(SessionConfig{})

	feed(t, s, concat(
		wire(FuncConfiguration, "AL4", false),
		wire(FuncAccountID, "1234", false),
		[]byte{0x06, 'N'},
	))
	s.Reset()

	if s.Level() != Level2 || s.Pending().AccountID != nil || s.Framer().Buffered() != 0 {
		t.Errorf("Reset incomplete: level %d pending %+v", s.Level(), s.Pending().Fields)
	}
}

// ============================================================
// Reply Tests
// ============================================================

func TestSession_Replies(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []FunctionCode
	}{
		{"ack requested", wire(FuncAccountID, "1234", true), []FunctionCode{FuncAcknowledge}},
		{"no ack requested", wire(FuncAccountID, "1234", false), nil},
		{"invalid account", wire(FuncAccountID, "12A4", true), []FunctionCode{FuncReject}},
		{"environmental", wire(FuncEnvironmental, "T21", true), []FunctionCode{FuncReject}},
		{"program", wire(FuncProgram, "", true), []FunctionCode{FuncReject}},
		{"remote login", wire(FuncRemoteLogin, "1234", true), []FunctionCode{FuncReject}},
		{"short event", wire(FuncNewEvent, "B", true), []FunctionCode{FuncReject}},
		{"end of data", wire(FuncEndOfData, "", true), []FunctionCode{FuncAcknowledge}},
		{"listen in", wire(FuncListenIn, "\x01\x02", true), []FunctionCode{FuncAcknowledge}},
		{"control", wire(FuncControl, "X", true), nil},
		{"extended", wire(FuncExtended, "ABC", true), nil},
		{"acknowledge", wire(FuncAcknowledge, "", true), nil},
		{"reject", wire(FuncReject, "", true), nil},
		{"alt reject", wire(FuncAltReject, "", true), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, snd, _ := newTestSession(SessionConfig{})
			feed(t, s, tt.data)
			if !sameFunctions(snd.functions(), tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, snd.functions())
			}
		})
	}
}

func TestSession_AltAcknowledge(t *testing.T) {
	s, snd, _ := newTestSession(SessionConfig{AltAcknowledge: true})

	feed(t, s, concat(
		wire(FuncAccountID, "1234", true),
		wire(FuncEnvironmental, "", true),
	))

	want := []FunctionCode{FuncAltAcknowledge, FuncAltReject}
	if !sameFunctions(snd.functions(), want) {
		t.Errorf("Expected %v, got %v", want, snd.functions())
	}
}

func TestSession_ChecksumErrorRejects(t *testing.T) {
	s, snd, rcv := newTestSession(SessionConfig{})

	data := wire(FuncNewEvent, "BA0001", false)
	data[3] ^= 0x10

	feed(t, s, data)
	if rcv.rejects != 1 {
		t.Errorf("Expected receiver reject notification, got %d", rcv.rejects)
	}
	if !sameFunctions(snd.functions(), []FunctionCode{FuncReject}) {
		t.Errorf("Expected one Reject, got %v", snd.functions())
	}
	if s.Stats().ChecksumErrors != 1 || s.Stats().RejectsSent != 1 {
		t.Errorf("Unexpected statistics:\n%s", s.Stats())
	}
}

func TestSession_SendFailureIsCounted(t *testing.T) {
	s, snd, _ := newTestSession(SessionConfig{})
	snd.err = errors.New("line dropped")

	feed(t, s, wire(FuncAccountID, "1234", true))
	if s.Stats().SendErrors != 1 || s.Stats().AcksSent != 0 {
		t.Errorf("Unexpected statistics:\n%s", s.Stats())
	}
}

func TestSession_ReceiverNotifications(t *testing.T) {
	s, _, rcv := newTestSession(SessionConfig{})

	feed(t, s, concat(
		wire(FuncControl, "CTRL", false),
		wire(FuncExtended, "EXT", false),
		wire(FuncAcknowledge, "", false),
		wire(FuncAltReject, "", false),
		wire(FuncVideoFrame, "\x00\xFF", false),
	))

	if len(rcv.controls) != 1 || rcv.controls[0] != "CTRL" {
		t.Errorf("Unexpected controls %v", rcv.controls)
	}
	if len(rcv.extended) != 1 || rcv.extended[0] != "EXT" {
		t.Errorf("Unexpected extended %v", rcv.extended)
	}
	if rcv.acks != 1 || rcv.rejects != 1 {
		t.Errorf("Expected 1 ack and 1 reject, got %d and %d", rcv.acks, rcv.rejects)
	}
	if len(rcv.passthroughs) != 1 || rcv.passthroughs[0] != FuncVideoFrame {
		t.Errorf("Unexpected passthroughs %v", rcv.passthroughs)
	}
}

func TestParseAccount(t *testing.T) {
	tests := []struct {
		payload  string
		expected int
		valid    bool
	}{
		{"1234", 1234, true},
		{"001234", 1234, true},
		{" 42 ", 42, true},
		{"", 0, false},
		{"12A4", 0, false},
		{"-5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			v, err := parseAccount([]byte(tt.payload))
			if tt.valid {
				if err != nil || v != tt.expected {
					t.Errorf("Expected %d, got %d (%v)", tt.expected, v, err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidAccount) {
				t.Errorf("Expected ErrInvalidAccount, got %v", err)
			}
		})
	}
}

// ============================================================
// Streaming Tests
// ============================================================

func TestSession_FeedChunkingIsTransparent(t *testing.T) {
	var stream []byte
	for i := 0; i < 20; i++ {
		stream = append(stream, wire(FuncAccountID, "1234", true)...)
		stream = append(stream, wire(FuncNewEvent, "da01-02-24/ti12:30:45/ri0001/BA0001*12AB/id000001/va000001", true)...)
	}

	whole, _, _ := newTestSession(SessionConfig{})
	want := feed(t, whole, stream)
	if len(want) != 20 {
		t.Fatalf("Expected 20 events, got %d", len(want))
	}

	for _, size := range []int{1, 2, 7, 64, 66, 67, 200} {
		s, _, _ := newTestSession(SessionConfig{})
		var got []*Event
		for off := 0; off < len(stream); off += size {
			end := min(off+size, len(stream))
			got = append(got, feed(t, s, stream[off:end])...)
		}
		if len(got) != len(want) {
			t.Errorf("Chunk size %d: expected %d events, got %d", size, len(want), len(got))
			continue
		}
		for i := range got {
			if FormatEvent(got[i])[13:] != FormatEvent(want[i])[13:] {
				t.Errorf("Chunk size %d: event %d differs", size, i)
			}
		}
	}
}
