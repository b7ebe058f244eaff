// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package oi

import (
	"fmt"
	"time"
)

// Statistics tracks stream health and error rates.
type Statistics struct {
	StartTime      time.Time
	LastValidFrame time.Time

	TotalFrames    uint64
	ValidFrames    uint64
	ChecksumErrors uint64
	LengthErrors   uint64
	LayoutErrors   uint64
	Recoveries     uint64

	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a statistics tracker.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{StartTime: now}
}

// RecordFrame counts a validated frame.
func (s *Statistics) RecordFrame(at time.Time) {
	s.TotalFrames++
	s.ValidFrames++
	s.LastValidFrame = at
}

// RecordError counts a rejected frame by inspecting the decoder error text.
// Length and checksum rejections are tracked separately because persistent
// length errors usually mean a baud or wiring fault rather than line noise.
func (s *Statistics) RecordError(err error) {
	s.TotalFrames++
	msg := err.Error()
	switch {
	case len(msg) >= 24 && msg[:24] == "oi: invalid frame length":
		s.LengthErrors++
	case len(msg) >= 18 && msg[:18] == "oi: frame checksum":
		s.ChecksumErrors++
	default:
		s.LayoutErrors++
	}
}

// RecordLayoutError counts a frame that validated but matched no payload layout.
func (s *Statistics) RecordLayoutError() {
	s.LayoutErrors++
}

// Errors returns the total rejected/unusable frame count.
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.LengthErrors + s.LayoutErrors
}

// NeedsRecovery reports whether the stream should be reconfigured: the error
// count since the last recovery exceeds threshold while no valid frame has
// arrived within window.
func (s *Statistics) NeedsRecovery(threshold uint64, window time.Duration, now time.Time) bool {
	if s.Errors() < threshold {
		return false
	}
	return s.LastValidFrame.IsZero() || now.Sub(s.LastValidFrame) > window
}

// RecordRecovery counts a stream reconfiguration and clears the error
// counters so the next decision starts fresh.
func (s *Statistics) RecordRecovery(now time.Time) {
	s.Recoveries++
	s.ChecksumErrors = 0
	s.LengthErrors = 0
	s.LayoutErrors = 0
	s.LastValidFrame = now
}

// CalculateRates refreshes the frames/sec and errors/sec figures.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.ValidFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)
	result := fmt.Sprintf("=== Stream statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.LengthErrors > 0 {
		result += fmt.Sprintf("Length Errors:   %8d\n", s.LengthErrors)
	}
	if s.LayoutErrors > 0 {
		result += fmt.Sprintf("Layout Errors:   %8d\n", s.LayoutErrors)
	}
	if s.Recoveries > 0 {
		result += fmt.Sprintf("Recoveries:      %8d\n", s.Recoveries)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "=====================================\n"
	return result
}

// Reset clears all counters.
func (s *Statistics) Reset() {
	now := time.Now()
	*s = Statistics{StartTime: now}
}
