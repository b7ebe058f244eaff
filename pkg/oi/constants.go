// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

// Package oi implements the iRobot Create Open Interface: command encoding,
// the continuous sensor stream decoder, and cached sensor state.
//
// The package speaks to the actuator controller over a single half-duplex
// serial channel. Encoding is stateless; stream decoding is a byte-at-a-time
// state machine that resynchronizes on any framing or checksum failure.
package oi

// Open Interface opcodes
const (
	OpStart       = 128
	OpBaud        = 129
	OpSafe        = 131
	OpFull        = 132
	OpDrive       = 137
	OpMotors      = 138
	OpLeds        = 139
	OpSong        = 140
	OpPlay        = 141
	OpSensors     = 142
	OpDriveDirect = 145
	OpStream      = 148
	OpQueryList   = 149
	OpPauseStream = 150
)

// StreamHeader introduces every frame of the continuous sensor stream.
const StreamHeader = 19

// Wheel speed limits in the actuator's native unit (mm/s).
const (
	MaxWheelSpeed = 500
	MinWheelSpeed = -500
)

// Sensor packet ids
const (
	PacketBumpsWheeldrops = 7
	PacketWall            = 8
	PacketCliffLeft       = 9
	PacketCliffFrontLeft  = 10
	PacketCliffFrontRight = 11
	PacketCliffRight      = 12
	PacketVirtualWall     = 13
	PacketOvercurrents    = 14
	PacketButtons         = 18
	PacketDistance        = 19
	PacketAngle           = 20
	PacketChargingState   = 21
	PacketVoltage         = 22
	PacketCurrent         = 23
	PacketBatteryTemp     = 24
	PacketBatteryCharge   = 25
	PacketBatteryCapacity = 26
)

// packetSizes maps a sensor packet id to its payload size in bytes.
// Zero means the id is not recognized.
var packetSizes = [43]int{
	7:  1, // bumps + wheel drops
	8:  1, // wall
	9:  1, // cliff left
	10: 1, // cliff front left
	11: 1, // cliff front right
	12: 1, // cliff right
	13: 1, // virtual wall
	14: 1, // overcurrents
	15: 1,
	16: 1,
	17: 1, // infrared byte
	18: 1, // buttons
	19: 2, // distance (signed, mm)
	20: 2, // angle (signed, degrees)
	21: 1, // charging state
	22: 2, // voltage (unsigned, mV)
	23: 2, // current (signed, mA)
	24: 1, // battery temperature (signed, C)
	25: 2, // battery charge (mAh)
	26: 2, // battery capacity (mAh)
}

// PacketSize returns the payload size for a sensor packet id, or 0 if the
// id is not a known single packet.
func PacketSize(id byte) int {
	if int(id) >= len(packetSizes) {
		return 0
	}
	return packetSizes[id]
}

// Bits of the bumps/wheel-drops packet (id 7).
const (
	rawBumpRight      = 0x01
	rawBumpLeft       = 0x02
	rawWheelDropRight = 0x04
	rawWheelDropLeft  = 0x08
	rawWheelDropFront = 0x10
)

// Normalized mask bits used by SensorState. Left is always bit 0 so the
// host protocol can report masks without knowing OI bit order.
const (
	MaskLeft       = 0x01
	MaskRight      = 0x02
	MaskFrontLeft  = 0x04
	MaskFrontRight = 0x08
	MaskFront      = 0x10
)

// Buttons packet bits (id 18, Create 1).
const (
	ButtonPlay    = 0x01
	ButtonAdvance = 0x04
)

// Decoder states (internal)
const (
	stateWaitHeader = iota
	stateWaitLength
	stateReadPayload
	stateWaitChecksum
)

// DefaultStreamPackets is the sensor set the brainstem subscribes to at
// startup, in the order the controller requests them. Bare-value frames are
// interpreted against this exact order.
var DefaultStreamPackets = []byte{
	PacketBumpsWheeldrops,
	PacketWall,
	PacketCliffLeft,
	PacketCliffFrontLeft,
	PacketCliffFrontRight,
	PacketCliffRight,
	PacketButtons,
	PacketDistance,
	PacketAngle,
	PacketVoltage,
	PacketBatteryCharge,
	PacketBatteryCapacity,
}
