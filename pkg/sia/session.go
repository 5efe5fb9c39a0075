// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidAccount is returned when an account-id or origin-id block does
// not carry a decimal number.
var ErrInvalidAccount = errors.New("sia: invalid account number")

// errNotImplemented marks block types the session has no handler for.
var errNotImplemented = errors.New("sia: block type not implemented")

// Receiver is notified of blocks that do not contribute to an event.
type Receiver interface {
	Control(text string)
	Configuration()
	Extended(text string, length int)
	Acknowledge()
	Reject()
}

// PassthroughReceiver is implemented by receivers that want listen-in and
// video blocks unchanged.
type PassthroughReceiver interface {
	Passthrough(fc FunctionCode, payload []byte)
}

// NopReceiver ignores every notification.
type NopReceiver struct{}

func (NopReceiver) Control(string) {}
func (NopReceiver) Configuration() {}
func (NopReceiver) Extended(string, int) {}
func (NopReceiver) Acknowledge() {}
func (NopReceiver) Reject() {}

// Sender transmits outbound blocks to the panel.
type Sender interface {
	SendBlock(b *Block) error
}

type discardSender struct{}

func (discardSender) SendBlock(*Block) error { return nil }

// SessionConfig configures a Session. The zero value is a level-2 session
// with the embedded catalog that sends nothing.
type SessionConfig struct {
	AltAcknowledge bool
	InitialLevel   int
	AddressRadix   int
	Catalog        *Catalog

	Receiver Receiver
	Sender   Sender
	Logger   *zap.Logger
}

// Session assembles blocks from one panel connection into events and
// answers them. All methods must be called from the goroutine that reads the
// transport.
type Session struct {
	altAck       bool
	initialLevel int
	level        int

	msg Message

	framer   *Framer
	decoder  *Decoder
	receiver Receiver
	sender   Sender
	logger   *zap.Logger
	stats    *Statistics
}

// NewSession creates a session ready to ingest bytes.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		altAck:   cfg.AltAcknowledge,
		receiver: cfg.Receiver,
		sender:   cfg.Sender,
		logger:   cfg.Logger,
		stats:    NewStatistics(),
	}
	if s.receiver == nil {
		s.receiver = NopReceiver{}
	}
	if s.sender == nil {
		s.sender = discardSender{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	s.initialLevel = Level2
	if cfg.InitialLevel >= MinLevel && cfg.InitialLevel <= MaxLevel {
		s.initialLevel = cfg.InitialLevel
	}
	s.level = s.initialLevel

	s.framer = NewFramer(
		WithFramerLogger(s.logger),
		OnChecksumError(s.onChecksumError),
	)
	s.decoder = NewDecoder(
		WithCatalog(cfg.Catalog),
		WithAddressRadix(cfg.AddressRadix),
		WithDecoderLogger(s.logger),
		WithDecoderStatistics(s.stats),
	)
	return s
}

// Level returns the current protocol level (2, 3 or 4).
func (s *Session) Level() int {
	return s.level
}

// Pending returns a copy of the in-progress message.
func (s *Session) Pending() Message {
	return s.msg
}

// Stats returns the live statistics of the session.
func (s *Session) Stats() *Statistics {
	return s.stats
}

// Framer exposes the session's framer for callers that drive it directly.
func (s *Session) Framer() *Framer {
	return s.framer
}

// Reset drops buffered bytes and the in-progress message and returns to the
// configured initial level. Use it after reconnecting to a panel.
func (s *Session) Reset() {
	s.framer.Reset()
	s.msg.Reset()
	s.level = s.initialLevel
}

// Ingest passes data to the framer and returns at most one block. See
// Framer.Ingest for the calling discipline.
func (s *Session) Ingest(data []byte) (*Block, error) {
	b, err := s.framer.Ingest(data)
	s.stats.Resyncs = s.framer.Resyncs()
	return b, err
}

// Feed frames and processes an arbitrary amount of input. Data is handed to
// the framer in pieces that fit its free space and every complete block is
// processed before the next piece, so read sizes never cause an overrun.
// Completed events are returned in arrival order.
func (s *Session) Feed(data []byte) ([]*Event, error) {
	var events []*Event
	for {
		n := min(len(data), s.framer.Free())
		chunk := data[:n]
		data = data[n:]

		for {
			b, err := s.Ingest(chunk)
			chunk = nil
			if err != nil {
				return events, err
			}
			if b == nil {
				break
			}
			if ev := s.OnBlock(b); ev != nil {
				events = append(events, ev)
			}
		}

		if len(data) == 0 {
			return events, nil
		}
	}
}

// OnBlock dispatches one framed block, sends the reply it calls for and
// returns the event it completed, if any.
func (s *Session) OnBlock(b *Block) *Event {
	s.stats.countBlock(b)

	err := s.dispatch(b)
	if err != nil {
		s.stats.HandlerFailures++
		s.logger.Warn("Block handler failed",
			zap.String("function", FormatFunctionCode(b.Function())),
			zap.Error(err),
		)
	}
	s.reply(b, err == nil)

	return s.complete()
}

func (s *Session) dispatch(b *Block) error {
	fc := b.Function()
	payload := b.Payload()

	switch fc {
	case FuncEndOfData, FuncWait, FuncAbort,
		FuncReserved3, FuncReserved4, FuncReserved5,
		FuncAckAndStandby, FuncAckAndDisconn:
		s.logger.Debug("Administrative block", zap.String("function", FormatFunctionCode(fc)))
		return nil

	case FuncAcknowledge, FuncAltAcknowledge:
		s.receiver.Acknowledge()
		return nil

	case FuncReject, FuncAltReject:
		s.receiver.Reject()
		return nil

	case FuncControl:
		s.receiver.Control(string(payload))
		return nil

	case FuncExtended:
		s.receiver.Extended(string(payload), len(payload))
		return nil

	case FuncConfiguration:
		s.handleConfiguration(payload)
		s.receiver.Configuration()
		return nil

	case FuncAccountID:
		return s.handleAccount(payload)

	case FuncOriginID:
		id, err := parseAccount(payload)
		if err != nil {
			return err
		}
		s.msg.OriginID = &id
		return nil

	case FuncNewEvent, FuncOldEvent:
		s.msg.raw = b.Bytes()
		err := s.decoder.Decode(string(payload), &s.msg)
		s.checkMissedStart()
		return err

	case FuncASCII:
		text := string(payload)
		s.msg.Text = &text
		s.checkMissedStart()
		return nil

	case FuncListenIn, FuncVideoRequest, FuncVideoFrame, FuncVideo:
		if p, ok := s.receiver.(PassthroughReceiver); ok {
			p.Passthrough(fc, append([]byte(nil), payload...))
		}
		return nil

	default:
		// Environmental, program and inbound remote-login blocks.
		return fmt.Errorf("%w: %s", errNotImplemented, FormatFunctionCode(fc))
	}
}

func (s *Session) handleAccount(payload []byte) error {
	account, err := parseAccount(payload)
	if err != nil {
		return err
	}
	if s.msg.AccountID != nil {
		s.logger.Warn("Replacing account id",
			zap.Int("previous", *s.msg.AccountID),
			zap.Int("account", account),
		)
	}
	s.msg.AccountID = &account
	return nil
}

func parseAccount(payload []byte) (int, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return 0, ErrInvalidAccount
	}
	for i := 0; i < len(text); i++ {
		if !isDigit(text[i]) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAccount, text)
		}
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAccount, text)
	}
	return v, nil
}

// handleConfiguration raises the level to the highest "AL<digit>" the panel
// advertises. The level never goes down.
func (s *Session) handleConfiguration(payload []byte) {
	highest := 0
	for i := 0; i+2 < len(payload); i++ {
		if payload[i] == 'A' && payload[i+1] == 'L' && isDigit(payload[i+2]) {
			highest = max(highest, int(payload[i+2]-'0'))
		}
	}
	highest = min(highest, MaxLevel)
	if highest > s.level {
		s.setLevel(highest, "configuration")
	}
}

// checkMissedStart handles event or text data arriving before any account id
// at level 2: the start of a level-3 message was missed, so the partial data
// is discarded and the session switches to level 3.
func (s *Session) checkMissedStart() {
	if s.msg.AccountID != nil || s.level >= Level3 {
		return
	}
	if s.msg.Event == nil && s.msg.Text == nil {
		return
	}
	s.logger.Warn("Data before account id, discarding partial message")
	s.msg.Event = nil
	s.msg.Text = nil
	s.setLevel(Level3, "missed message start")
}

func (s *Session) setLevel(level int, reason string) {
	s.logger.Info("Protocol level changed",
		zap.Int("from", s.level),
		zap.Int("to", level),
		zap.String("reason", reason),
	)
	s.level = level
	s.stats.LevelChanges++
}

func (s *Session) reply(b *Block, ok bool) {
	if !b.AckRequested() {
		return
	}
	if _, skip := noReply[b.Function()]; skip {
		return
	}
	if ok {
		if s.send(NewAcknowledge(s.altAck)) {
			s.stats.AcksSent++
		}
		return
	}
	s.sendReject()
}

func (s *Session) sendReject() {
	if s.send(NewReject(s.altAck)) {
		s.stats.RejectsSent++
	}
}

func (s *Session) send(b *Block) bool {
	if err := s.sender.SendBlock(b); err != nil {
		s.stats.SendErrors++
		s.logger.Error("Failed to send reply",
			zap.String("function", FormatFunctionCode(b.Function())),
			zap.Error(err),
		)
		return false
	}
	s.logger.Debug("Reply sent", zap.String("function", FormatFunctionCode(b.Function())))
	return true
}

func (s *Session) onChecksumError([]byte) {
	s.stats.ChecksumErrors++
	s.receiver.Reject()
	s.sendReject()
}

// complete hands out the in-progress message once it holds an account id and
// an event, plus text at level 3 and above.
func (s *Session) complete() *Event {
	if s.msg.AccountID == nil || s.msg.Event == nil {
		return nil
	}
	if s.level >= Level3 && s.msg.Text == nil {
		return nil
	}

	ev := &Event{
		Fields:        s.msg.Fields,
		Raw:           s.msg.raw,
		ProtocolLevel: s.level,
		Timestamp:     time.Now(),
	}
	s.msg.Reset()
	s.stats.Events++

	s.logger.Debug("Event complete",
		zap.String("code", ev.Code()),
		zap.Int("account", *ev.AccountID),
	)
	return ev
}
