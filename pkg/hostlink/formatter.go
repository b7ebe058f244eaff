// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package hostlink

import (
	"fmt"
	"strings"
)

// Outbound line builders. None of these append the ,eid=<n> suffix; the
// telemetry publisher owns event ids.

// Hello builds the boot banner.
func Hello(build string) string {
	return fmt.Sprintf("HELLO,proto=%s,build=%s", ProtocolVersion, build)
}

// Link reports actuator link transitions.
func Link(up bool, seq int) string {
	return fmt.Sprintf("LINK,%s,%d", boolDigit(up), seq)
}

// Pong echoes a ping sequence number.
func Pong(seq int) string {
	return fmt.Sprintf("PONG,%d", seq)
}

// State reports an arbitration state or mode name.
func State(name string) string {
	return "STATE," + name
}

// Bump reports a bumper hazard edge.
func Bump(mask uint8, seq int) string {
	return fmt.Sprintf("BUMP,1,%d,%d", mask, seq)
}

// Cliff reports a cliff hazard edge.
func Cliff(mask uint8, seq int) string {
	return fmt.Sprintf("CLIFF,1,%d,%d", mask, seq)
}

// Startle reports a reflex trigger with its cause.
func Startle(reason string, mask uint8, seq int) string {
	return fmt.Sprintf("STARTLE,%s,%d,%d", reason, mask, seq)
}

// Estop reports estop assertion or release.
func Estop(active bool, seq int) string {
	return fmt.Sprintf("ESTOP,%s,%d", boolDigit(active), seq)
}

// Stale reports command-staleness watchdog expiry.
func Stale(msSince int64) string {
	return fmt.Sprintf("STALE,twist,%d", msSince)
}

// RangeMin reports the current minimum range reading and its source.
func RangeMin(meters float64, id string, seq int) string {
	return fmt.Sprintf("RGMIN,%.3f,%s,%d", meters, id, seq)
}

// Odom reports integrated odometry and current actual velocities.
func Odom(x, y, theta, vx, wz float64, seq int) string {
	return fmt.Sprintf("ODOM,%.3f,%.3f,%.3f,%.3f,%.3f,%d", x, y, theta, vx, wz, seq)
}

// Time reports the controller's millisecond clock.
func Time(millis int64) string {
	return fmt.Sprintf("TIME,%d", millis)
}

// Bat reports battery telemetry.
func Bat(milliVolts uint16, percent int, charging bool) string {
	return fmt.Sprintf("BAT,%d,%d,%s", milliVolts, percent, boolDigit(charging))
}

// Ack builds a success echo: ACK,<verb>[,args...].
func Ack(verb string, args ...string) string {
	if len(args) == 0 {
		return "ACK," + verb
	}
	return "ACK," + verb + "," + strings.Join(args, ",")
}

// AckTwist is the fixed-precision twist echo.
func AckTwist(vx, wz float64, seq int) string {
	return fmt.Sprintf("ACK,TWIST,%.3f,%.3f,%d", vx, wz, seq)
}

// Err builds an error report: ERR,<kind>[,detail].
func Err(kind, detail string) string {
	if detail == "" {
		return "ERR," + kind
	}
	return "ERR," + kind + "," + detail
}

// ErrParse, ErrCRC, ErrCmd, ErrParam and ErrEvtMissing cover the error
// taxonomy used on the wire.
func ErrParse(detail string) string { return Err("parse", detail) }
func ErrCRC() string                { return Err("crc", "") }
func ErrCmd(verb string) string     { return Err("cmd", verb) }
func ErrParam(key string) string    { return Err("param", key) }
func ErrEvtMissing() string         { return Err("evt", "missing") }

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
