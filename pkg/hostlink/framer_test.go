// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package hostlink

import "testing"

// feedLine pushes a string plus terminator through the framer, returning the
// final event and any completed line.
func feedLine(f *Framer, s string, term string) (string, LineEvent) {
	var line string
	ev := EventNone
	for i := 0; i < len(s); i++ {
		l, e := f.Feed(s[i])
		if e != EventNone {
			line, ev = l, e
		}
	}
	for i := 0; i < len(term); i++ {
		l, e := f.Feed(term[i])
		if e != EventNone {
			line, ev = l, e
		}
	}
	return line, ev
}

func TestFramer_CompleteLine(t *testing.T) {
	tests := []struct {
		name string
		term string
	}{
		{"LF", "\n"},
		{"CR", "\r"},
		{"CRLF", "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(DefaultMaxLineLen)
			line, ev := feedLine(f, "PING,7", tt.term)
			if ev != EventLine {
				t.Fatalf("event = %v, want EventLine", ev)
			}
			if line != "PING,7" {
				t.Errorf("line = %q", line)
			}
			// The terminator must not leave a phantom empty line behind.
			if _, e := f.Feed('\n'); e != EventNone {
				t.Errorf("trailing LF produced event %v", e)
			}
		})
	}
}

func TestFramer_BadCharDiscardedLineSurvives(t *testing.T) {
	f := NewFramer(DefaultMaxLineLen)
	f.Feed('P')
	f.Feed('I')
	if _, ev := f.Feed(0x07); ev != EventBadChar {
		t.Fatal("expected EventBadChar for BEL")
	}
	f.Feed('N')
	f.Feed('G')
	feedLine(f, ",3", "")
	line, ev := f.Feed('\n')
	if ev != EventLine || line != "PING,3" {
		t.Errorf("got %q, %v; bad char must not disturb the line", line, ev)
	}
}

func TestFramer_OverflowReportedOnce(t *testing.T) {
	f := NewFramer(16)
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'A'
	}

	events := 0
	for _, b := range long {
		if _, ev := f.Feed(b); ev == EventOverflow {
			events++
		}
	}
	if events != 0 {
		t.Fatal("overflow must be reported at the terminator, not mid-line")
	}
	if _, ev := f.Feed('\n'); ev != EventOverflow {
		t.Fatalf("expected EventOverflow at terminator, got %v", ev)
	}
	// Buffer cleared: the next line parses normally.
	line, ev := feedLine(f, "STATS", "\n")
	if ev != EventLine || line != "STATS" {
		t.Errorf("after overflow got %q, %v", line, ev)
	}
}

func TestFramer_ChecksumVerifyAndStrip(t *testing.T) {
	f := NewFramer(DefaultMaxLineLen)
	line, ev := feedLine(f, AppendChecksum("TWIST,0.5,0.0,1"), "\n")
	if ev != EventLine {
		t.Fatalf("event = %v", ev)
	}
	if line != "TWIST,0.5,0.0,1" {
		t.Errorf("line = %q, checksum suffix not stripped", line)
	}
}

func TestFramer_ChecksumMismatchDropsLine(t *testing.T) {
	f := NewFramer(DefaultMaxLineLen)
	_, ev := feedLine(f, "TWIST,0.5,0.0,1*00", "\n")
	if ev != EventBadChecksum {
		t.Fatalf("event = %v, want EventBadChecksum", ev)
	}
}

func TestVerifyChecksum(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
		ok   bool
	}{
		{"no suffix", "PING,1", "PING,1", true},
		{"valid suffix", AppendChecksum("PING,1"), "PING,1", true},
		{"wrong value", "PING,1*FF", "", false},
		{"short suffix", "PING,1*A", "", false},
		{"long suffix", "PING,1*ABC", "", false},
		{"non-hex suffix", "PING,1*GG", "", false},
		{"lowercase hex ok", "A*61", "A", XORChecksum("A") == 0x61},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := VerifyChecksum(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("stripped = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFramer_SetMaxLen(t *testing.T) {
	f := NewFramer(96)
	f.SetMaxLen(4)
	_, ev := feedLine(f, "TOOLONG", "\n")
	if ev != EventOverflow {
		t.Errorf("event = %v, want EventOverflow after cap change", ev)
	}
}
