// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
)

func TestInterpreter_TwistAckAndTarget(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("TWIST,0.5,0.0,1")

	if !f.hasHostLine("ACK,TWIST,0.500,0.000,1") {
		t.Errorf("missing twist ack, got %v", f.hostLines())
	}
	m := f.ctrl.Motion()
	if m.VxTarget != 0.5 || m.WzTarget != 0 || m.LastSeq != 1 {
		t.Errorf("motion = %+v, want vx=0.5 wz=0 seq=1", m)
	}
}

func TestInterpreter_BadTwistLeavesTargetUnchanged(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("TWIST,0.3,0.0,1")
	f.sendLine("TWIST,abc,0,2")

	if !f.hasHostLine("ERR,parse,num") {
		t.Error("missing ERR,parse,num")
	}
	m := f.ctrl.Motion()
	if m.VxTarget != 0.3 || m.LastSeq != 1 {
		t.Errorf("motion = %+v, want previous target preserved", m)
	}
}

func TestInterpreter_NonFiniteTwistRejected(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("TWIST,0.2,0.0,1")
	f.sendLine("TWIST,NaN,0.0,2")
	f.sendLine("TWIST,+Inf,0.0,3")

	if got := f.hostLineCount("ERR,parse,num"); got != 2 {
		t.Errorf("ERR,parse,num count = %d, want 2", got)
	}
	m := f.ctrl.Motion()
	if m.VxTarget != 0.2 || m.LastSeq != 1 {
		t.Errorf("motion = %+v, want previous finite target preserved", m)
	}

	// The slew limiter must keep dispatching finite speeds afterwards.
	f.advance(100 * time.Millisecond)
	m = f.ctrl.Motion()
	if math.IsNaN(m.VxActual) || math.IsInf(m.VxActual, 0) {
		t.Fatalf("VxActual = %v after rejected twists", m.VxActual)
	}
	if m.VxActual < 0 || m.VxActual > 0.2 {
		t.Errorf("VxActual = %v, want within [0, 0.2]", m.VxActual)
	}
}

func TestInterpreter_UnknownVerb(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("WARBLE,1")
	if !f.hasHostLine("ERR,cmd,WARBLE") {
		t.Error("missing ERR,cmd,WARBLE")
	}
}

func TestInterpreter_ChecksummedLines(t *testing.T) {
	f := hostControlled(t)

	f.sendLine(hostlink.AppendChecksum("PING,9"))
	if !f.hasHostLine("PONG,9") {
		t.Errorf("checksummed ping not answered, got %v", f.hostLines())
	}

	f.sendLine("PING,9*FF")
	if !f.hasHostLine("ERR,crc") {
		t.Error("bad checksum not reported")
	}
	if got := f.hostLineCount("PONG,9"); got != 1 {
		t.Errorf("PONG count = %d, corrupted line was dispatched", got)
	}
}

func TestInterpreter_SetGetRoundTrip(t *testing.T) {
	f := hostControlled(t)

	f.sendLine("SET,watchdog_ms,250")
	if !f.hasHostLine("ACK,SET,watchdog_ms,250") {
		t.Error("SET not acknowledged")
	}
	if f.ctrl.params.WatchdogMS != 250 {
		t.Errorf("WatchdogMS = %d, want 250", f.ctrl.params.WatchdogMS)
	}

	f.sendLine("GET,watchdog_ms")
	if !f.hasHostLine("ACK,GET,watchdog_ms,250") {
		t.Error("GET did not echo the stored value")
	}
}

func TestInterpreter_SetErrors(t *testing.T) {
	f := hostControlled(t)

	f.sendLine("SET,bogus_key,1")
	if !f.hasHostLine("ERR,param,bogus_key") {
		t.Error("unknown key not reported as ERR,param")
	}

	f.sendLine("SET,slew_v,fast")
	if !f.hasHostLine("ERR,parse,num") {
		t.Error("bad value not reported as ERR,parse,num")
	}

	f.sendLine("GET,bogus_key")
	if got := f.hostLineCount("ERR,param,bogus_key"); got != 2 {
		t.Errorf("ERR,param count = %d, want 2", got)
	}
}

func TestInterpreter_SetPropagatesLineCap(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("SET,max_line_len,32")
	if got := f.ctrl.framer.MaxLen(); got != 32 {
		t.Errorf("framer cap = %d after SET, want 32", got)
	}

	long := "TWIST," + strings.Repeat("1", 40) + ",0,1"
	f.sendLine(long)
	if !f.hasHostLine("ERR,parse,overflow") {
		t.Error("oversized line not reported after cap change")
	}
}

func TestInterpreter_SetPropagatesBucketRate(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("SET,tx_bytes_per_s,64")
	if f.ctrl.params.TxBytesPerS != 64 {
		t.Fatalf("TxBytesPerS = %v, want 64", f.ctrl.params.TxBytesPerS)
	}
}

func TestInterpreter_PauseSuppressesEventTelemetry(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("PAUSE")
	if !f.hasHostLine("ACK,PAUSE") {
		t.Fatal("PAUSE not acknowledged")
	}

	before := f.hostLineCount("ODOM,")
	f.advance(time.Second)
	if got := f.hostLineCount("ODOM,"); got != before {
		t.Errorf("ODOM emitted while paused (%d -> %d)", before, got)
	}

	f.sendLine("RESUME")
	f.advance(time.Second)
	if got := f.hostLineCount("ODOM,"); got == before {
		t.Error("ODOM still suppressed after RESUME")
	}
}

func TestInterpreter_RangeAckAndMinimum(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("RANGE,0.9,front")
	f.sendLine("RANGE,0.4,left")

	if !f.hasHostLine("ACK,RANGE,0.9,front") {
		t.Error("RANGE not acknowledged")
	}
	min, id, ok := f.ctrl.ranges.Min()
	if !ok || min != 0.4 || id != "left" {
		t.Errorf("Min = (%v,%s,%v), want (0.4,left,true)", min, id, ok)
	}
	if !f.hasHostLine("RGMIN,0.400,left,") {
		t.Errorf("no RGMIN for new minimum, got %v", f.hostLines())
	}
}

func TestInterpreter_LedRoutesToPresentation(t *testing.T) {
	var got uint32
	f := newFixture(t, func(cfg *Config) {
		cfg.Presentation = &recordingPresentation{leds: &got}
	})
	f.ctrl.mode = ModeHostControlled

	f.sendLine("LED,5")
	if got != 5 {
		t.Errorf("presentation mask = %d, want 5", got)
	}
	if !f.hasHostLine("ACK,LED,5") {
		t.Error("LED not acknowledged")
	}
}

type recordingPresentation struct {
	leds   *uint32
	states []string
}

func (p *recordingPresentation) AnnounceState(s string)  { p.states = append(p.states, s) }
func (p *recordingPresentation) AnnounceHazard(s string) {}
func (p *recordingPresentation) SetLeds(m uint32)        { *p.leds = m }

func TestInterpreter_EventIDsStrictlyIncrease(t *testing.T) {
	f := hostControlled(t)
	f.sendLine("TWIST,0.1,0.0,1")
	f.sendLine("PING,1")
	f.sendLine("SET,odom_hz,2")
	f.advance(2 * time.Second)

	var last uint64
	for _, l := range f.hostLines() {
		idx := strings.LastIndex(l, ",eid=")
		if idx < 0 {
			t.Fatalf("line without eid suffix: %q", l)
		}
		eid, err := strconv.ParseUint(l[idx+5:], 10, 64)
		if err != nil {
			t.Fatalf("bad eid in %q: %v", l, err)
		}
		if eid <= last {
			t.Fatalf("eid %d after %d, want strictly increasing", eid, last)
		}
		last = eid
	}
}
