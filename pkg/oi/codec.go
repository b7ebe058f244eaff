// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package oi

import (
	"fmt"
	"io"
	"time"
)

// EncodeDriveDirect encodes a direct wheel-speed drive command.
// Speeds are in mm/s, right wheel first, big-endian, clamped to the
// actuator's limits.
func EncodeDriveDirect(right, left int16) []byte {
	right = clampWheel(right)
	left = clampWheel(left)
	return []byte{
		OpDriveDirect,
		byte(uint16(right) >> 8), byte(uint16(right)),
		byte(uint16(left) >> 8), byte(uint16(left)),
	}
}

// EncodeStop is a drive-direct with both wheels at zero.
func EncodeStop() []byte {
	return EncodeDriveDirect(0, 0)
}

// EncodeDrive encodes the velocity/radius drive command. A radius of zero is
// transmitted as the OI "straight" sentinel 0x8000.
func EncodeDrive(velocity, radius int16) []byte {
	r := uint16(radius)
	if radius == 0 {
		r = 0x8000
	}
	return []byte{
		OpDrive,
		byte(uint16(velocity) >> 8), byte(uint16(velocity)),
		byte(r >> 8), byte(r),
	}
}

// EncodeStream encodes a stream subscription for the given packet ids.
func EncodeStream(ids []byte) []byte {
	out := make([]byte, 0, len(ids)+2)
	out = append(out, OpStream, byte(len(ids)))
	return append(out, ids...)
}

// EncodePauseStream and EncodeResumeStream toggle an active stream without
// discarding its configuration.
func EncodePauseStream() []byte  { return []byte{OpPauseStream, 0} }
func EncodeResumeStream() []byte { return []byte{OpPauseStream, 1} }

// EncodeQueryList encodes a one-shot query for the given packet ids.
func EncodeQueryList(ids []byte) []byte {
	out := make([]byte, 0, len(ids)+2)
	out = append(out, OpQueryList, byte(len(ids)))
	return append(out, ids...)
}

// EncodeSensors encodes a one-shot query for a single packet id.
func EncodeSensors(id byte) []byte {
	return []byte{OpSensors, id}
}

// EncodeLeds encodes the LED control command (Create 1 layout: advance/play
// bits, power LED color and intensity).
func EncodeLeds(bits, color, intensity byte) []byte {
	return []byte{OpLeds, bits, color, intensity}
}

// EncodeStart, EncodeSafe and EncodeFull produce the OI mode opcodes.
func EncodeStart() []byte { return []byte{OpStart} }
func EncodeSafe() []byte  { return []byte{OpSafe} }
func EncodeFull() []byte  { return []byte{OpFull} }

func clampWheel(v int16) int16 {
	if v > MaxWheelSpeed {
		return MaxWheelSpeed
	}
	if v < MinWheelSpeed {
		return MinWheelSpeed
	}
	return v
}

// QuerySensor issues a single synchronous sensor query and reads the reply
// with a wall-clock deadline. It is intended for one-shot initialization and
// diagnostics only; the periodic control loop must never block here.
func QuerySensor(rw io.ReadWriter, id byte, timeout time.Duration) ([]byte, error) {
	size := PacketSize(id)
	if size == 0 {
		return nil, fmt.Errorf("oi: unknown sensor packet id %d", id)
	}
	if _, err := rw.Write(EncodeSensors(id)); err != nil {
		return nil, fmt.Errorf("oi: query write failed: %w", err)
	}

	reply := make([]byte, 0, size)
	buf := make([]byte, size)
	deadline := time.Now().Add(timeout)
	for len(reply) < size {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("oi: query for packet %d timed out after %v", id, timeout)
		}
		n, err := rw.Read(buf[:size-len(reply)])
		if err != nil {
			return nil, fmt.Errorf("oi: query read failed: %w", err)
		}
		if n == 0 {
			// Read timeout on the port; retry until the deadline.
			continue
		}
		reply = append(reply, buf[:n]...)
	}
	return reply, nil
}
