// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

// Package hostlink implements the operator-facing text protocol: line
// framing with optional XOR checksums, the command grammar, and outbound
// telemetry line formatting.
//
// Lines are ASCII, comma-separated, CR/LF terminated, optionally suffixed
// with *HH where HH is the hex XOR of every byte before the asterisk.
package hostlink

// ProtocolVersion is reported in the HELLO banner.
const ProtocolVersion = "1.0"

// Inbound verbs
const (
	VerbTwist  = "TWIST"
	VerbSafe   = "SAFE"
	VerbLed    = "LED"
	VerbPing   = "PING"
	VerbPause  = "PAUSE"
	VerbResume = "RESUME"
	VerbPass   = "PASS"
	VerbRange  = "RANGE"
	VerbSet    = "SET"
	VerbGet    = "GET"
	VerbReplay = "REPLAY"
	VerbStats  = "STATS"
)

// State names for STATE lines, in arbitration precedence order
// (highest first).
const (
	StateLinkDown = "LINKDOWN"
	StateEstop    = "ESTOP"
	StateReflex   = "REFLEX"
	StateStale    = "STALE"
	StateTeleop   = "TELEOP"
	StateIdle     = "IDLE"
)

// Mode names for STATE lines emitted on mode transitions.
const (
	ModeAutonomous     = "AUTONOMOUS"
	ModeHostControlled = "HOST_CONTROLLED"
)

// Parameter keys
const (
	KeySoftStop   = "soft_stop_m"
	KeyHardStop   = "hard_stop_m"
	KeyWatchdog   = "watchdog_ms"
	KeyOdomHz     = "odom_hz"
	KeySlewV      = "slew_v"
	KeySlewW      = "slew_w"
	KeyTxBudget   = "tx_bytes_per_s"
	KeyMaxLine    = "max_line_len"
	KeyLogLevel   = "log_level"
	KeyEventQuery = "evt" // reserved: GET,evt,<eid>
)

// Mask bits for BUMP/CLIFF/STARTLE mask fields.
const (
	MaskLeft  = 0x01
	MaskRight = 0x02
)

// InterpreterByte is the in-band handshake: a NUL on the host link while the
// passthrough relay is active is swallowed and promotes the brainstem to
// host-controlled operation.
const InterpreterByte = 0x00

// DefaultMaxLineLen bounds line assembly until max_line_len is changed.
const DefaultMaxLineLen = 96
