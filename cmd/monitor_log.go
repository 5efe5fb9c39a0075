// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// noticeCore is a zapcore.Core that turns log entries into noticeMsg values
// for the monitor's event log. Writing to stderr would tear the alt screen.
type noticeCore struct {
	zapcore.LevelEnabler
	enc  zapcore.Encoder
	send func(noticeMsg)
}

func newNoticeCore(enab zapcore.LevelEnabler, send func(noticeMsg)) *noticeCore {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "msg",
		ConsoleSeparator: " ",
	})
	return &noticeCore{LevelEnabler: enab, enc: enc, send: send}
}

func (c *noticeCore) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &noticeCore{LevelEnabler: c.LevelEnabler, enc: enc, send: c.send}
}

func (c *noticeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *noticeCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(buf.String())
	buf.Free()

	c.send(noticeMsg{text: text, isError: ent.Level >= zapcore.WarnLevel})
	return nil
}

func (c *noticeCore) Sync() error {
	return nil
}
