// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package hostlink

import (
	"math"
	"strconv"
	"strings"
)

// Command is the closed set of host-link commands. The interpreter
// dispatches with an exhaustive type switch, so adding a variant without
// handling it is a compile-time-visible omission rather than a silent
// string-compare miss.
type Command interface {
	isCommand()
}

// Twist sets the motion target.
type Twist struct {
	Vx  float64 // m/s
	Wz  float64 // rad/s
	Seq int
}

// Safe enables or disables the safety system; disabling asserts the estop.
type Safe struct {
	Enabled bool
}

// Led is an opaque passthrough to the presentation layer.
type Led struct {
	Mask uint32
}

// Ping requests a PONG echo.
type Ping struct {
	Seq int
}

// Pause suppresses priority>0 telemetry; Resume restores it.
type Pause struct{}
type Resume struct{}

// Pass demotes the brainstem back to the passthrough relay.
type Pass struct{}

// Range updates a named range reading.
type Range struct {
	Meters float64
	ID     string
}

// SetParam and GetParam access runtime parameters.
type SetParam struct {
	Key   string
	Value string
}

type GetParam struct {
	Key string
}

// GetEvent retrieves one replay-ring entry by event id (GET,evt,<eid>).
type GetEvent struct {
	EID uint64
}

// Replay resends buffered telemetry with ids greater than SinceEID.
type Replay struct {
	SinceEID uint64
}

// Stats requests the counters line.
type Stats struct{}

func (Twist) isCommand()    {}
func (Safe) isCommand()     {}
func (Led) isCommand()      {}
func (Ping) isCommand()     {}
func (Pause) isCommand()    {}
func (Resume) isCommand()   {}
func (Pass) isCommand()     {}
func (Range) isCommand()    {}
func (SetParam) isCommand() {}
func (GetParam) isCommand() {}
func (GetEvent) isCommand() {}
func (Replay) isCommand()   {}
func (Stats) isCommand()    {}

// ParseError reports a malformed command line. Kind and Detail map directly
// onto the wire error taxonomy: ERR,<Kind>,<Detail>.
type ParseError struct {
	Kind   string // "parse" or "cmd"
	Detail string // "arity", "num", or the unknown verb
}

func (e *ParseError) Error() string {
	return "hostlink: ERR," + e.Kind + "," + e.Detail
}

func errArity() error { return &ParseError{Kind: "parse", Detail: "arity"} }
func errNum() error   { return &ParseError{Kind: "parse", Detail: "num"} }
func errVerb(v string) error { return &ParseError{Kind: "cmd", Detail: v} }

// ParseCommand parses one framed line (checksum already stripped) into a
// typed command. Numeric fields are strict: the entire token must convert.
func ParseCommand(line string) (Command, error) {
	fields := strings.Split(line, ",")
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case VerbTwist:
		if len(args) != 3 {
			return nil, errArity()
		}
		vx, err1 := parseFloat(args[0])
		wz, err2 := parseFloat(args[1])
		seq, err3 := parseInt(args[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, errNum()
		}
		return Twist{Vx: vx, Wz: wz, Seq: seq}, nil

	case VerbSafe:
		if len(args) != 1 {
			return nil, errArity()
		}
		switch args[0] {
		case "0":
			return Safe{Enabled: false}, nil
		case "1":
			return Safe{Enabled: true}, nil
		}
		return nil, errNum()

	case VerbLed:
		if len(args) != 1 {
			return nil, errArity()
		}
		mask, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return nil, errNum()
		}
		return Led{Mask: uint32(mask)}, nil

	case VerbPing:
		if len(args) != 1 {
			return nil, errArity()
		}
		seq, err := parseInt(args[0])
		if err != nil {
			return nil, errNum()
		}
		return Ping{Seq: seq}, nil

	case VerbPause:
		if len(args) != 0 {
			return nil, errArity()
		}
		return Pause{}, nil

	case VerbResume:
		if len(args) != 0 {
			return nil, errArity()
		}
		return Resume{}, nil

	case VerbPass:
		if len(args) != 0 {
			return nil, errArity()
		}
		return Pass{}, nil

	case VerbRange:
		if len(args) != 2 {
			return nil, errArity()
		}
		meters, err := parseFloat(args[0])
		if err != nil || args[1] == "" {
			return nil, errNum()
		}
		return Range{Meters: meters, ID: args[1]}, nil

	case VerbSet:
		if len(args) != 2 {
			return nil, errArity()
		}
		return SetParam{Key: args[0], Value: args[1]}, nil

	case VerbGet:
		// GET,evt,<eid> is the event retrieval form; GET,<key> reads a
		// parameter.
		if len(args) == 2 && args[0] == KeyEventQuery {
			eid, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return nil, errNum()
			}
			return GetEvent{EID: eid}, nil
		}
		if len(args) != 1 {
			return nil, errArity()
		}
		return GetParam{Key: args[0]}, nil

	case VerbReplay:
		if len(args) != 1 {
			return nil, errArity()
		}
		since, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, errNum()
		}
		return Replay{SinceEID: since}, nil

	case VerbStats:
		if len(args) != 0 {
			return nil, errArity()
		}
		return Stats{}, nil
	}

	return nil, errVerb(verb)
}

// parseFloat converts a whole token; trailing garbage is an error. NaN and
// the infinities are rejected too: a non-finite velocity or range would
// poison every downstream comparison, starting with the slew limiter.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s)
}
