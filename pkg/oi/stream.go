// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package oi

import (
	"fmt"
	"time"
)

// MaxFramePayload bounds the declared length of a stream frame. The default
// subscription is well under this; anything larger is treated as line noise.
const MaxFramePayload = 64

// Frame is one validated sensor stream frame.
type Frame struct {
	Payload   []byte
	Timestamp time.Time
}

// ChecksumValidator decides whether a frame checksum is acceptable. The sum
// covers header, length, payload and checksum bytes.
type ChecksumValidator interface {
	Valid(sum uint8) bool
	Name() string
}

// SumToZero accepts frames whose byte sum is 0 modulo 256. This is the
// convention documented for the OI stream.
type SumToZero struct{}

func (SumToZero) Valid(sum uint8) bool { return sum == 0 }
func (SumToZero) Name() string         { return "sum-to-zero" }

// OnesComplement accepts frames whose byte sum is 0xFF, a convention seen on
// some controller firmware revisions.
type OnesComplement struct{}

func (OnesComplement) Valid(sum uint8) bool { return sum == 0xFF }
func (OnesComplement) Name() string         { return "ones-complement" }

// Either accepts both conventions. It exists as a migration shim while the
// deployed hardware population is mixed; prefer selecting one explicitly.
type Either struct{}

func (Either) Valid(sum uint8) bool { return sum == 0 || sum == 0xFF }
func (Either) Name() string         { return "either" }

// ValidatorByName selects a checksum convention by its configuration name.
func ValidatorByName(name string) (ChecksumValidator, error) {
	switch name {
	case "sum-to-zero":
		return SumToZero{}, nil
	case "ones-complement":
		return OnesComplement{}, nil
	case "either", "":
		return Either{}, nil
	}
	return nil, fmt.Errorf("oi: unknown checksum convention %q", name)
}

// StreamDecoder implements the sensor stream state machine:
// WaitHeader -> WaitLength -> ReadPayload -> WaitChecksum -> WaitHeader.
//
// Any invalid length or checksum failure resynchronizes immediately; cached
// sensor state is only ever updated from a frame that validated.
type StreamDecoder struct {
	state     int
	declared  int
	payload   []byte
	sum       uint8
	validator ChecksumValidator

	// Counters consumed by Statistics and the recovery policy.
	Frames    uint64
	BadFrames uint64
	Resyncs   uint64
}

// NewStreamDecoder creates a decoder with the given checksum convention.
// A nil validator selects the Either migration shim.
func NewStreamDecoder(v ChecksumValidator) *StreamDecoder {
	if v == nil {
		v = Either{}
	}
	return &StreamDecoder{
		state:     stateWaitHeader,
		payload:   make([]byte, 0, MaxFramePayload),
		validator: v,
	}
}

// Reset returns the decoder to header-wait without touching counters.
func (d *StreamDecoder) Reset() {
	d.state = stateWaitHeader
	d.declared = 0
	d.payload = d.payload[:0]
	d.sum = 0
}

// ResetCounters clears the health counters, used after stream recovery.
func (d *StreamDecoder) ResetCounters() {
	d.Frames = 0
	d.BadFrames = 0
	d.Resyncs = 0
}

// Feed processes one byte. It returns a completed frame, or nil while a frame
// is in progress. A non-nil error reports a rejected frame; the decoder has
// already resynchronized when it returns one.
func (d *StreamDecoder) Feed(b byte) (*Frame, error) {
	switch d.state {
	case stateWaitHeader:
		if b == StreamHeader {
			d.sum = b
			d.state = stateWaitLength
		}
		return nil, nil

	case stateWaitLength:
		if b == 0 || int(b) > MaxFramePayload {
			d.Resyncs++
			d.BadFrames++
			d.Reset()
			return nil, fmt.Errorf("oi: invalid frame length %d", b)
		}
		d.declared = int(b)
		d.sum += b
		d.payload = d.payload[:0]
		d.state = stateReadPayload
		return nil, nil

	case stateReadPayload:
		// declared was bounds-checked before any payload write
		d.payload = append(d.payload, b)
		d.sum += b
		if len(d.payload) >= d.declared {
			d.state = stateWaitChecksum
		}
		return nil, nil

	case stateWaitChecksum:
		sum := d.sum + b
		if !d.validator.Valid(sum) {
			d.Resyncs++
			d.BadFrames++
			d.Reset()
			return nil, fmt.Errorf("oi: frame checksum rejected (sum 0x%02X, convention %s)",
				sum, d.validator.Name())
		}
		d.Frames++
		frame := &Frame{
			Payload:   make([]byte, len(d.payload)),
			Timestamp: time.Now(),
		}
		copy(frame.Payload, d.payload)
		d.Reset()
		return frame, nil
	}

	d.Reset()
	return nil, fmt.Errorf("oi: invalid decoder state")
}
