// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrShortPayload is returned when a payload is too short to hold a field.
var ErrShortPayload = errors.New("sia: payload shorter than one field code")

// Numeric modifier fields and the maximum number of digits each consumes.
var numericModifiers = map[string]struct {
	name   string
	digits int
	set    func(*Fields, int)
}{
	"id": {"subscriber", 6, func(f *Fields, v int) { f.SubscriberID = intPtr(v) }},
	"ri": {"area", 4, func(f *Fields, v int) { f.AreaID = intPtr(v) }},
	"pi": {"peripheral", 4, func(f *Fields, v int) { f.PeripheralID = intPtr(v) }},
	"ai": {"automated", 4, func(f *Fields, v int) { f.AutomatedID = intPtr(v) }},
	"ph": {"telephone", 2, func(f *Fields, v int) { f.TelephoneID = intPtr(v) }},
	"lv": {"level", 2, func(f *Fields, v int) { f.Level = intPtr(v) }},
	"va": {"value", 6, func(f *Fields, v int) { f.Value = intPtr(v) }},
	"pt": {"path", 2, func(f *Fields, v int) { f.Path = intPtr(v) }},
	"rg": {"route group", 2, func(f *Fields, v int) { f.RouteGroup = intPtr(v) }},
	"ss": {"sub-subscriber", 4, func(f *Fields, v int) { f.SubSubscriber = intPtr(v) }},
}

const (
	dateLength      = 8 // MM-DD-YY
	maxTimeLength   = 8 // HH:MM:SS
	maxAddressChars = 4
	maxUnitsDigits  = 6
	maxUnitsType    = 2
)

// Decoder parses the text sub-protocol carried in event block payloads.
type Decoder struct {
	catalog *Catalog
	radix   int
	logger  *zap.Logger
	stats   *Statistics
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithCatalog sets the event catalog used for code lookup.
func WithCatalog(c *Catalog) DecoderOption {
	return func(d *Decoder) {
		if c != nil {
			d.catalog = c
		}
	}
}

// WithAddressRadix selects base-10 or base-16 event address numbers. Galaxy
// panels use base 10.
func WithAddressRadix(radix int) DecoderOption {
	return func(d *Decoder) {
		if radix == 10 || radix == 16 {
			d.radix = radix
		}
	}
}

// WithDecoderLogger sets the logger for field errors.
func WithDecoderLogger(l *zap.Logger) DecoderOption {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDecoderStatistics counts unknown codes and field errors into s.
func WithDecoderStatistics(s *Statistics) DecoderOption {
	return func(d *Decoder) { d.stats = s }
}

// NewDecoder creates a field decoder using the embedded catalog and base-10
// addresses unless overridden.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		catalog: DefaultCatalog(),
		radix:   10,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode parses payload into m, mutating it in place. A malformed or unknown
// field is logged and skipped; only a payload shorter than two characters is
// reported as an error.
func (d *Decoder) Decode(payload string, m *Message) error {
	if len(payload) < 2 {
		return ErrShortPayload
	}

	pos := 0
	for len(payload)-pos >= 2 {
		code := payload[pos : pos+2]
		pos += 2

		switch code {
		case "da":
			pos = d.decodeDate(payload, pos, m)
			continue
		case "ti":
			pos = d.decodeTime(payload, pos, m)
			continue
		}

		if mod, ok := numericModifiers[code]; ok {
			end := scanField(payload, pos, mod.digits)
			v, err := strconv.Atoi(payload[pos:end])
			if err != nil {
				d.fieldError(mod.name, payload[pos:end])
				pos = skipField(payload, pos)
				continue
			}
			mod.set(&m.Fields, v)
			pos = consumeSeparator(payload, end)
			continue
		}

		if ev, ok := d.catalog.Lookup(code); ok {
			pos = d.decodeEvent(payload, pos, ev, m)
			continue
		}

		d.logger.Error("Unknown field code", zap.String("code", code), zap.String("payload", payload))
		if d.stats != nil {
			d.stats.UnknownCodes++
		}
		pos = skipField(payload, pos)
	}

	return nil
}

func (d *Decoder) decodeDate(p string, pos int, m *Message) int {
	if len(p)-pos < dateLength {
		d.fieldError("date", p[pos:])
		return skipField(p, pos)
	}

	s := p[pos : pos+dateLength]
	if s[2] != '-' || s[5] != '-' {
		d.fieldError("date", s)
		return skipField(p, pos)
	}
	month, err1 := strconv.Atoi(s[0:2])
	day, err2 := strconv.Atoi(s[3:5])
	year, err3 := strconv.Atoi(s[6:8])
	if err1 != nil || err2 != nil || err3 != nil {
		d.fieldError("date", s)
		return skipField(p, pos)
	}

	m.Date = &Date{Month: month, Day: day, Year: year}
	return consumeSeparator(p, pos+dateLength)
}

func (d *Decoder) decodeTime(p string, pos int, m *Message) int {
	end := scanField(p, pos, maxTimeLength)
	raw := p[pos:end]
	digits := strings.ReplaceAll(raw, ":", "")
	if len(digits) != 4 && len(digits) != 6 {
		d.fieldError("time", raw)
		return skipField(p, pos)
	}

	parts := make([]int, 0, 3)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.Atoi(digits[i : i+2])
		if err != nil {
			d.fieldError("time", raw)
			return skipField(p, pos)
		}
		parts = append(parts, v)
	}

	t := &TimeOfDay{Hour: parts[0], Minute: parts[1]}
	if len(parts) == 3 {
		t.Second = parts[2]
		t.HasSeconds = true
	}
	m.Time = t
	return consumeSeparator(p, end)
}

// decodeEvent stores ev on m and parses the optional address number and
// "*units" suffix that follow the code.
func (d *Decoder) decodeEvent(p string, pos int, ev *EventCode, m *Message) int {
	m.Event = ev
	m.AddressType = ev.Address.Label()
	m.Address = nil
	m.Units = nil
	m.UnitsType = ""

	end := pos
	for end < len(p) && end-pos < maxAddressChars && p[end] != FieldSeparator && p[end] != UnitsSeparator {
		end++
	}
	if end > pos {
		addr, err := strconv.ParseInt(p[pos:end], d.radix, 32)
		if err != nil {
			d.fieldError("address", p[pos:end])
		} else if addr == 0 {
			m.Address = intPtr(UnknownAddress)
		} else {
			m.Address = intPtr(int(addr))
		}
	}
	pos = end

	if pos < len(p) && p[pos] == UnitsSeparator {
		pos++
		end = pos
		for end < len(p) && end-pos < maxUnitsDigits && isDigit(p[end]) {
			end++
		}
		units, err := strconv.Atoi(p[pos:end])
		if err != nil {
			d.fieldError("units", p[pos:end])
			return skipField(p, pos)
		}
		pos = end
		end = pos
		for end < len(p) && end-pos < maxUnitsType && p[end] != FieldSeparator {
			end++
		}
		m.Units = intPtr(units)
		m.UnitsType = p[pos:end]
		pos = end
	}

	return skipField(p, pos)
}

func (d *Decoder) fieldError(field, data string) {
	d.logger.Error("Field decode error", zap.String("field", field), zap.String("data", data))
	if d.stats != nil {
		d.stats.FieldErrors++
	}
}

// scanField returns the end of a field of at most max characters starting at
// pos, stopping early at a separator.
func scanField(p string, pos, max int) int {
	end := pos
	for end < len(p) && end-pos < max && p[end] != FieldSeparator {
		end++
	}
	return end
}

// skipField advances past the next separator, or to the end of the payload.
func skipField(p string, pos int) int {
	if pos >= len(p) {
		return len(p)
	}
	idx := strings.IndexByte(p[pos:], FieldSeparator)
	if idx < 0 {
		return len(p)
	}
	return pos + idx + 1
}

func consumeSeparator(p string, pos int) int {
	if pos < len(p) && p[pos] == FieldSeparator {
		return pos + 1
	}
	return pos
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
