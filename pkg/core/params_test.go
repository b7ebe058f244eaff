// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import (
	"errors"
	"testing"
)

func TestParams_SetValid(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		key, value string
		check      func() bool
	}{
		{"soft_stop_m", "0.75", func() bool { return p.SoftStopM == 0.75 }},
		{"hard_stop_m", "0.3", func() bool { return p.HardStopM == 0.3 }},
		{"watchdog_ms", "250", func() bool { return p.WatchdogMS == 250 }},
		{"odom_hz", "10", func() bool { return p.OdomHz == 10 }},
		{"slew_v", "1.2", func() bool { return p.SlewV == 1.2 }},
		{"slew_w", "3", func() bool { return p.SlewW == 3 }},
		{"tx_bytes_per_s", "4096", func() bool { return p.TxBytesPerS == 4096 }},
		{"max_line_len", "128", func() bool { return p.MaxLineLen == 128 }},
		{"log_level", "2", func() bool { return p.LogLevel == 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := p.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%s,%s): %v", tt.key, tt.value, err)
			}
			if !tt.check() {
				t.Errorf("Set(%s,%s) did not store the value", tt.key, tt.value)
			}
		})
	}
}

func TestParams_SetErrors(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name       string
		key, value string
		want       error
	}{
		{"unknown key", "warp_factor", "9", ErrUnknownKey},
		{"not a number", "slew_v", "fast", ErrBadValue},
		{"trailing garbage", "slew_v", "0.5x", ErrBadValue},
		{"negative", "watchdog_ms", "-1", ErrBadValue},
		{"empty", "odom_hz", "", ErrBadValue},
		{"nan", "slew_v", "NaN", ErrBadValue},
		{"positive inf", "hard_stop_m", "+Inf", ErrBadValue},
		{"negative inf", "soft_stop_m", "-Inf", ErrBadValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Set(tt.key, tt.value)
			if !errors.Is(err, tt.want) {
				t.Errorf("Set(%s,%s) = %v, want %v", tt.key, tt.value, err, tt.want)
			}
		})
	}

	if p.SlewV != DefaultParams().SlewV {
		t.Error("failed Set mutated the parameter")
	}
}

func TestParams_GetFormatsEveryKey(t *testing.T) {
	p := DefaultParams()
	for _, key := range []string{
		"soft_stop_m", "hard_stop_m", "watchdog_ms", "odom_hz",
		"slew_v", "slew_w", "tx_bytes_per_s", "max_line_len", "log_level",
	} {
		if v, ok := p.Get(key); !ok || v == "" {
			t.Errorf("Get(%s) = (%q,%v), want a value", key, v, ok)
		}
	}
	if _, ok := p.Get("warp_factor"); ok {
		t.Error("Get accepted an unknown key")
	}
}

func TestRangeGuard_EvictionAndMin(t *testing.T) {
	var g RangeGuard
	if _, _, ok := g.Min(); ok {
		t.Error("empty guard reported a minimum")
	}

	g.Update("front", 1.0)
	g.Update("left", 0.6)
	g.Update("front", 0.8) // update in place, no new slot
	g.Update("right", 2.0)
	g.Update("rear", 1.5)

	if min, id, ok := g.Min(); !ok || min != 0.6 || id != "left" {
		t.Errorf("Min = (%v,%s,%v), want (0.6,left,true)", min, id, ok)
	}

	// A fifth id with all slots taken evicts rather than growing.
	g.Update("sonar", 0.1)
	if min, id, _ := g.Min(); min != 0.1 || id != "sonar" {
		t.Errorf("Min after eviction = (%v,%s), want (0.1,sonar)", min, id)
	}
}
