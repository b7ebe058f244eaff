// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package oi

import (
	"math"
	"time"
)

// SensorState holds the last-known-good values parsed from the sensor
// stream. Fields are only overwritten from frames that validated; a rejected
// frame leaves the whole struct untouched.
//
// Masks use the normalized bit layout (MaskLeft, MaskRight, ...), not the
// raw OI bit order.
type SensorState struct {
	BumpMask      uint8
	WheelDropMask uint8
	CliffMask     uint8
	WallSeen      bool
	ButtonMask    uint8

	BatteryMilliVolts uint16
	BatteryCharge     uint16 // mAh
	BatteryCapacity   uint16 // mAh

	// Odometry integrated from distance/angle packets.
	X, Y, Theta float64

	LastFrame time.Time

	prevBump      uint8
	prevWheelDrop uint8
	prevCliff     uint8
	prevButtons   uint8
}

// BatteryPercent derives remaining charge from the charge/capacity packets.
// Returns 100 while capacity is still unknown so low-battery reflexes do not
// fire before the first valid frame.
func (s *SensorState) BatteryPercent() int {
	if s.BatteryCapacity == 0 {
		return 100
	}
	pct := int(uint32(s.BatteryCharge) * 100 / uint32(s.BatteryCapacity))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// BeginFrame snapshots the edge-detection baselines. Call once before
// applying a frame's values, then use the *Edge accessors.
func (s *SensorState) BeginFrame(at time.Time) {
	s.prevBump = s.BumpMask
	s.prevWheelDrop = s.WheelDropMask
	s.prevCliff = s.CliffMask
	s.prevButtons = s.ButtonMask
	s.LastFrame = at
}

// BumpEdge returns the bump bits that transitioned clear-to-set in the most
// recent frame. Hazard reactions key off edges, not levels, so a held bumper
// does not retrigger the reflex every frame.
func (s *SensorState) BumpEdge() uint8 { return s.BumpMask &^ s.prevBump }

// CliffEdge returns cliff bits that transitioned clear-to-set.
func (s *SensorState) CliffEdge() uint8 { return s.CliffMask &^ s.prevCliff }

// WheelDropEdge returns wheel-drop bits that transitioned clear-to-set.
func (s *SensorState) WheelDropEdge() uint8 { return s.WheelDropMask &^ s.prevWheelDrop }

// ButtonEdge returns button bits that transitioned clear-to-set.
func (s *SensorState) ButtonEdge() uint8 { return s.ButtonMask &^ s.prevButtons }

// applyPacket folds one sensor packet value into the cached state.
// Unrecognized ids are ignored so a generic id/value frame can carry packets
// the brainstem does not track.
func (s *SensorState) applyPacket(id byte, data []byte) {
	switch id {
	case PacketBumpsWheeldrops:
		raw := data[0]
		var bump, drop uint8
		if raw&rawBumpLeft != 0 {
			bump |= MaskLeft
		}
		if raw&rawBumpRight != 0 {
			bump |= MaskRight
		}
		if raw&rawWheelDropLeft != 0 {
			drop |= MaskLeft
		}
		if raw&rawWheelDropRight != 0 {
			drop |= MaskRight
		}
		if raw&rawWheelDropFront != 0 {
			drop |= MaskFront
		}
		s.BumpMask = bump
		s.WheelDropMask = drop

	case PacketWall:
		s.WallSeen = data[0] != 0

	case PacketCliffLeft:
		s.setCliffBit(MaskLeft, data[0] != 0)
	case PacketCliffFrontLeft:
		s.setCliffBit(MaskFrontLeft, data[0] != 0)
	case PacketCliffFrontRight:
		s.setCliffBit(MaskFrontRight, data[0] != 0)
	case PacketCliffRight:
		s.setCliffBit(MaskRight, data[0] != 0)

	case PacketButtons:
		s.ButtonMask = data[0]

	case PacketDistance:
		mm := int16(uint16(data[0])<<8 | uint16(data[1]))
		s.integrateDistance(float64(mm) / 1000.0)

	case PacketAngle:
		deg := int16(uint16(data[0])<<8 | uint16(data[1]))
		s.Theta = normalizeAngle(s.Theta + float64(deg)*math.Pi/180.0)

	case PacketVoltage:
		s.BatteryMilliVolts = uint16(data[0])<<8 | uint16(data[1])
	case PacketBatteryCharge:
		s.BatteryCharge = uint16(data[0])<<8 | uint16(data[1])
	case PacketBatteryCapacity:
		s.BatteryCapacity = uint16(data[0])<<8 | uint16(data[1])
	}
}

func (s *SensorState) setCliffBit(bit uint8, on bool) {
	if on {
		s.CliffMask |= bit
	} else {
		s.CliffMask &^= bit
	}
}

func (s *SensorState) integrateDistance(meters float64) {
	s.X += meters * math.Cos(s.Theta)
	s.Y += meters * math.Sin(s.Theta)
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
