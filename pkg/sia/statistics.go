// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"fmt"
	"time"
)

// Statistics tracks block, event and error counts for one session.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalBlocks     uint64
	ChecksumErrors  uint64
	Resyncs         uint64
	HandlerFailures uint64
	UnknownCodes    uint64
	FieldErrors     uint64
	Events          uint64
	AcksSent        uint64
	RejectsSent     uint64
	AcksReceived    uint64
	RejectsReceived uint64
	SendErrors      uint64
	LevelChanges    uint64
	Anomalies       uint64

	// Rates (calculated)
	BlockRate float64 // blocks/sec
	EventRate float64 // events/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// countBlock records a framed block by function code.
func (s *Statistics) countBlock(b *Block) {
	s.TotalBlocks++
	switch b.Function() {
	case FuncAcknowledge, FuncAltAcknowledge:
		s.AcksReceived++
	case FuncReject, FuncAltReject:
		s.RejectsReceived++
	}
	s.LastUpdateTime = time.Now()
}

// AddAnomalies records validation findings for a completed event.
func (s *Statistics) AddAnomalies(errs []ValidationError) {
	s.Anomalies += uint64(len(errs))
}

func (s *Statistics) errorCount() uint64 {
	return s.ChecksumErrors + s.HandlerFailures + s.UnknownCodes + s.FieldErrors
}

// CalculateRates calculates block, event and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.BlockRate = float64(s.TotalBlocks) / elapsed
		s.EventRate = float64(s.Events) / elapsed
		s.ErrorRate = float64(s.errorCount()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var checksumPercent float64
	if frames := s.TotalBlocks + s.ChecksumErrors; frames > 0 {
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(frames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Blocks:    %8d\n", s.TotalBlocks)
	result += fmt.Sprintf("Events:          %8d\n", s.Events)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.Resyncs > 0 {
		result += fmt.Sprintf("Resyncs:         %8d\n", s.Resyncs)
	}
	if s.HandlerFailures > 0 {
		result += fmt.Sprintf("Handler Fails:   %8d\n", s.HandlerFailures)
	}
	if s.UnknownCodes > 0 || s.FieldErrors > 0 {
		result += fmt.Sprintf("Field Problems:  %8d\n", s.UnknownCodes+s.FieldErrors)
		if s.UnknownCodes > 0 {
			result += fmt.Sprintf("  Unknown Codes:    %5d\n", s.UnknownCodes)
		}
		if s.FieldErrors > 0 {
			result += fmt.Sprintf("  Bad Fields:       %5d\n", s.FieldErrors)
		}
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
	}

	result += fmt.Sprintf("Acks Sent/Recv:  %8d / %d\n", s.AcksSent, s.AcksReceived)
	result += fmt.Sprintf("Rejects Sent/Recv:%7d / %d\n", s.RejectsSent, s.RejectsReceived)
	if s.SendErrors > 0 {
		result += fmt.Sprintf("Send Errors:     %8d\n", s.SendErrors)
	}
	result += fmt.Sprintf("Block Rate:      %8.1f blocks/sec\n", s.BlockRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
