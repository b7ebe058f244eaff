// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package hostlink

import (
	"fmt"
	"strings"
)

// LineEvent classifies the outcome of feeding one byte to the Framer.
type LineEvent int

const (
	// EventNone: byte consumed, no line yet.
	EventNone LineEvent = iota
	// EventLine: a complete line is available (checksum stripped if present).
	EventLine
	// EventBadChar: a non-printable byte was discarded; line unaffected.
	EventBadChar
	// EventOverflow: line exceeded the cap; buffer reset, line dropped.
	EventOverflow
	// EventBadChecksum: the *HH suffix did not match; line dropped.
	EventBadChecksum
)

// Framer assembles raw host-link bytes into bounded text lines.
//
// Bytes outside printable ASCII (and CR/LF) are rejected individually without
// disturbing the line in progress: serial glitches tend to corrupt single
// characters, and dropping the whole line for each would make a noisy link
// unusable.
type Framer struct {
	buf      []byte
	max      int
	overflow bool
}

// NewFramer creates a framer with the given line cap. Caps below 8 are
// raised to 8 so a checksum suffix always fits.
func NewFramer(maxLen int) *Framer {
	f := &Framer{}
	f.SetMaxLen(maxLen)
	f.buf = make([]byte, 0, f.max)
	return f
}

// SetMaxLen changes the line cap at runtime (max_line_len parameter).
func (f *Framer) SetMaxLen(n int) {
	if n < 8 {
		n = 8
	}
	f.max = n
}

// MaxLen returns the current line cap.
func (f *Framer) MaxLen() int { return f.max }

// Reset discards any line in progress.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.overflow = false
}

// Feed consumes one raw byte. When it returns EventLine, the returned string
// is the completed line with any checksum suffix verified and stripped.
func (f *Framer) Feed(b byte) (string, LineEvent) {
	if b == '\r' || b == '\n' {
		if len(f.buf) == 0 && !f.overflow {
			// Bare terminator (or the LF of a CRLF pair): ignore.
			return "", EventNone
		}
		overflowed := f.overflow
		line := string(f.buf)
		f.Reset()
		if overflowed {
			return "", EventOverflow
		}
		stripped, ok := VerifyChecksum(line)
		if !ok {
			return "", EventBadChecksum
		}
		return stripped, EventLine
	}

	if b < 0x20 || b > 0x7E {
		return "", EventBadChar
	}

	if f.overflow {
		return "", EventNone
	}
	if len(f.buf) >= f.max {
		// Keep consuming until the terminator so the oversized line yields
		// exactly one overflow report.
		f.overflow = true
		return "", EventNone
	}
	f.buf = append(f.buf, b)
	return "", EventNone
}

// XORChecksum computes the XOR of all bytes in s.
func XORChecksum(s string) byte {
	var x byte
	for i := 0; i < len(s); i++ {
		x ^= s[i]
	}
	return x
}

// AppendChecksum returns the line with its *HH checksum suffix attached.
func AppendChecksum(line string) string {
	return fmt.Sprintf("%s*%02X", line, XORChecksum(line))
}

// VerifyChecksum validates and strips an optional *HH suffix. Lines without
// a suffix pass unchanged. A malformed or mismatched suffix fails; the
// asterisk is reserved for checksums and cannot appear in command text.
func VerifyChecksum(line string) (string, bool) {
	idx := strings.LastIndexByte(line, '*')
	if idx < 0 {
		return line, true
	}
	suffix := line[idx+1:]
	if len(suffix) != 2 {
		return "", false
	}
	var want byte
	for i := 0; i < 2; i++ {
		v := hexVal(suffix[i])
		if v < 0 {
			return "", false
		}
		want = want<<4 | byte(v)
	}
	body := line[:idx]
	if XORChecksum(body) != want {
		return "", false
	}
	return body, true
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	}
	return -1
}
