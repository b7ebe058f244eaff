// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package hostlink

import "testing"

func TestFormatters(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"hello", Hello("2026-02-11"), "HELLO,proto=1.0,build=2026-02-11"},
		{"link up", Link(true, 9), "LINK,1,9"},
		{"pong", Pong(42), "PONG,42"},
		{"state", State(StateTeleop), "STATE,TELEOP"},
		{"bump", Bump(MaskLeft|MaskRight, 3), "BUMP,1,3,3"},
		{"cliff", Cliff(MaskLeft, 4), "CLIFF,1,1,4"},
		{"startle", Startle("bump", MaskRight, 5), "STARTLE,bump,2,5"},
		{"estop", Estop(true, 6), "ESTOP,1,6"},
		{"stale", Stale(750), "STALE,twist,750"},
		{"rgmin", RangeMin(0.476, "front", 7), "RGMIN,0.476,front,7"},
		{"odom", Odom(1.5, -0.25, 0.785, 0.2, 0, 8), "ODOM,1.500,-0.250,0.785,0.200,0.000,8"},
		{"time", Time(123456), "TIME,123456"},
		{"bat", Bat(16340, 87, false), "BAT,16340,87,0"},
		{"ack twist", AckTwist(0.5, 0, 1), "ACK,TWIST,0.500,0.000,1"},
		{"ack bare", Ack(VerbPause), "ACK,PAUSE"},
		{"ack args", Ack(VerbSet, "slew_v", "0.8"), "ACK,SET,slew_v,0.8"},
		{"err parse", ErrParse("overflow"), "ERR,parse,overflow"},
		{"err crc", ErrCRC(), "ERR,crc"},
		{"err cmd", ErrCmd("WARBLE"), "ERR,cmd,WARBLE"},
		{"err param", ErrParam("bogus"), "ERR,param,bogus"},
		{"err evt", ErrEvtMissing(), "ERR,evt,missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}
