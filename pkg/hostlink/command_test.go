// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package hostlink

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseCommand_Valid(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Command
	}{
		{"twist", "TWIST,0.5,-0.25,7", Twist{Vx: 0.5, Wz: -0.25, Seq: 7}},
		{"safe on", "SAFE,1", Safe{Enabled: true}},
		{"safe off", "SAFE,0", Safe{Enabled: false}},
		{"led", "LED,5", Led{Mask: 5}},
		{"ping", "PING,42", Ping{Seq: 42}},
		{"pause", "PAUSE", Pause{}},
		{"resume", "RESUME", Resume{}},
		{"pass", "PASS", Pass{}},
		{"range", "RANGE,0.48,front", Range{Meters: 0.48, ID: "front"}},
		{"set", "SET,watchdog_ms,250", SetParam{Key: "watchdog_ms", Value: "250"}},
		{"get", "GET,slew_v", GetParam{Key: "slew_v"}},
		{"get event", "GET,evt,1138", GetEvent{EID: 1138}},
		{"replay", "REPLAY,90", Replay{SinceEID: 90}},
		{"stats", "STATS", Stats{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.line)
			if err != nil {
				t.Fatalf("ParseCommand(%q): %v", tt.line, err)
			}
			if !reflect.DeepEqual(cmd, tt.expected) {
				t.Errorf("ParseCommand(%q) = %#v, want %#v", tt.line, cmd, tt.expected)
			}
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantKind   string
		wantDetail string
	}{
		{"twist missing arg", "TWIST,0.5,0.0", "parse", "arity"},
		{"twist extra arg", "TWIST,0.5,0.0,1,9", "parse", "arity"},
		{"twist bad number", "TWIST,abc,0,1", "parse", "num"},
		{"twist trailing garbage", "TWIST,0.5x,0,1", "parse", "num"},
		{"twist empty field", "TWIST,,0,1", "parse", "num"},
		{"twist nan", "TWIST,NaN,0.0,1", "parse", "num"},
		{"twist positive inf", "TWIST,+Inf,0.0,2", "parse", "num"},
		{"twist negative inf", "TWIST,0.0,-Inf,3", "parse", "num"},
		{"twist infinity word", "TWIST,Infinity,0,4", "parse", "num"},
		{"range nan", "RANGE,nan,front", "parse", "num"},
		{"safe out of range", "SAFE,2", "parse", "num"},
		{"led negative", "LED,-1", "parse", "num"},
		{"ping float", "PING,1.5", "parse", "num"},
		{"pause with arg", "PAUSE,1", "parse", "arity"},
		{"range missing id", "RANGE,0.5", "parse", "arity"},
		{"range empty id", "RANGE,0.5,", "parse", "num"},
		{"get event bad id", "GET,evt,x", "parse", "num"},
		{"replay bad id", "REPLAY,-3", "parse", "num"},
		{"stats with arg", "STATS,now", "parse", "arity"},
		{"unknown verb", "WARBLE,1", "cmd", "WARBLE"},
		{"empty line", "", "cmd", ""},
		{"lowercase verb", "ping,1", "cmd", "ping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand(tt.line)
			if err == nil {
				t.Fatalf("ParseCommand(%q) succeeded, want error", tt.line)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error type %T, want *ParseError", err)
			}
			if perr.Kind != tt.wantKind || perr.Detail != tt.wantDetail {
				t.Errorf("error = %s,%s; want %s,%s",
					perr.Kind, perr.Detail, tt.wantKind, tt.wantDetail)
			}
		})
	}
}

func TestParseCommand_NoStateMutation(t *testing.T) {
	// Parsing is pure: a failed parse returns nil and only nil.
	cmd, err := ParseCommand("TWIST,abc,0,1")
	if cmd != nil {
		t.Errorf("failed parse returned a command: %#v", cmd)
	}
	if err == nil {
		t.Error("expected error")
	}
}
