// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/siastat/internal/logging"
	"github.com/Thermoquad/siastat/pkg/sia"
)

// newSession builds a session from the loaded configuration.
func newSession(receiver sia.Receiver, sender sia.Sender) (*sia.Session, error) {
	catalog, err := appConfig.LoadCatalog()
	if err != nil {
		return nil, err
	}

	return sia.NewSession(sia.SessionConfig{
		AltAcknowledge: appConfig.Session.AltAcknowledge,
		InitialLevel:   appConfig.Session.InitialLevel,
		AddressRadix:   appConfig.Session.AddressRadix,
		Catalog:        catalog,
		Receiver:       receiver,
		Sender:         sender,
		Logger:         logging.GetLogger(),
	}), nil
}

// feedBlocks frames data through the session the same way Session.Feed does,
// but reports every block as well as every completed event.
func feedBlocks(s *sia.Session, data []byte, onBlock func(*sia.Block), onEvent func(*sia.Event, []sia.ValidationError)) error {
	for {
		n := min(len(data), s.Framer().Free())
		chunk := data[:n]
		data = data[n:]

		for {
			b, err := s.Ingest(chunk)
			chunk = nil
			if err != nil {
				return err
			}
			if b == nil {
				break
			}
			if onBlock != nil {
				onBlock(b)
			}
			if ev := s.OnBlock(b); ev != nil {
				anomalies := sia.ValidateEvent(ev)
				s.Stats().AddAnomalies(anomalies)
				if onEvent != nil {
					onEvent(ev, anomalies)
				}
			}
		}

		if len(data) == 0 {
			return nil
		}
	}
}

// lineReceiver renders session notifications as single lines.
type lineReceiver struct {
	emit func(string)
}

func (r lineReceiver) Control(text string) {
	r.emit(fmt.Sprintf("CONTROL %q", text))
}

func (r lineReceiver) Configuration() {
	r.emit("CONFIGURATION")
}

func (r lineReceiver) Extended(text string, length int) {
	r.emit(fmt.Sprintf("EXTENDED len=%d %q", length, text))
}

func (r lineReceiver) Acknowledge() {
	r.emit("ACK received")
}

func (r lineReceiver) Reject() {
	r.emit("REJECT")
}

func (r lineReceiver) Passthrough(fc sia.FunctionCode, payload []byte) {
	r.emit(sia.FormatFunctionCode(fc) + " " + strings.TrimSpace(sia.FormatPayload(fc, payload)))
}

// printAnomalies renders validation findings for an event.
func printAnomalies(emit func(string), errs []sia.ValidationError) {
	for _, e := range errs {
		emit(fmt.Sprintf("  [%s] %s", e.Type, e.Message))
	}
}
