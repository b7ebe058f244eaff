// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package oi

import "fmt"

// Frame payload layouts seen across controller firmware revisions, tried in
// this order:
//
//  1. bare values, one per requested packet, in the exact requested order
//  2. id-prefixed pairs covering exactly the requested packet set
//  3. arbitrary id/value pairs (generic fallback)
//
// The first layout whose sizes work out is applied. A payload matching none
// of them is reported and leaves the cached state untouched.

// ApplyFrame interprets a validated frame against the requested packet set
// and folds its values into the cached sensor state.
func ApplyFrame(s *SensorState, f *Frame, requested []byte) error {
	if layoutIsBare(f.Payload, requested) {
		s.BeginFrame(f.Timestamp)
		applyBare(s, f.Payload, requested)
		return nil
	}
	if layoutIsRequestedPairs(f.Payload, requested) {
		s.BeginFrame(f.Timestamp)
		applyPairs(s, f.Payload)
		return nil
	}
	if layoutIsGenericPairs(f.Payload) {
		s.BeginFrame(f.Timestamp)
		applyPairs(s, f.Payload)
		return nil
	}
	return fmt.Errorf("oi: frame payload (%d bytes) matches no known layout", len(f.Payload))
}

// layoutIsBare reports whether the payload is exactly the concatenated
// values of the requested packets, in order, with no id prefixes.
func layoutIsBare(payload, requested []byte) bool {
	total := 0
	for _, id := range requested {
		total += PacketSize(id)
	}
	return total > 0 && len(payload) == total
}

func applyBare(s *SensorState, payload, requested []byte) {
	off := 0
	for _, id := range requested {
		size := PacketSize(id)
		s.applyPacket(id, payload[off:off+size])
		off += size
	}
}

// layoutIsRequestedPairs reports whether the payload is id-prefixed values
// for exactly the requested packet set, in order.
func layoutIsRequestedPairs(payload, requested []byte) bool {
	off := 0
	for _, id := range requested {
		size := PacketSize(id)
		if off >= len(payload) || payload[off] != id || off+1+size > len(payload) {
			return false
		}
		off += 1 + size
	}
	return off == len(payload)
}

// layoutIsGenericPairs reports whether the payload walks cleanly as a
// sequence of known-id/value pairs.
func layoutIsGenericPairs(payload []byte) bool {
	off := 0
	for off < len(payload) {
		size := PacketSize(payload[off])
		if size == 0 || off+1+size > len(payload) {
			return false
		}
		off += 1 + size
	}
	return off == len(payload) && len(payload) > 0
}

func applyPairs(s *SensorState, payload []byte) {
	off := 0
	for off < len(payload) {
		id := payload[off]
		size := PacketSize(id)
		s.applyPacket(id, payload[off+1:off+1+size])
		off += 1 + size
	}
}
