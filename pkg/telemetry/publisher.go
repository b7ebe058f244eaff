// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
)

// PriorityState is the priority class that is never rate-limited: safety and
// state transitions. Higher numbers are progressively more expendable.
const (
	PriorityState = 0
	PriorityEvent = 1
	PriorityBulk  = 2
)

// Counters are the publisher's health counters, surfaced via STATS.
type Counters struct {
	Sent    uint64
	Dropped uint64
	LastEID uint64
}

// Publisher assigns event ids, writes lines to the host link, and copies
// every emitted line into the replay ring.
//
// A line that the bucket rejects is dropped before an id is assigned, so
// emitted ids stay strictly increasing with no holes for the receiver to
// misread as loss.
type Publisher struct {
	w      io.Writer
	ring   *ReplayRing
	bucket *TokenBucket
	clock  func() time.Time

	nextEID  uint64
	paused   bool
	counters Counters
}

// NewPublisher creates a publisher emitting on w. The clock is injectable
// for deterministic tests; nil selects time.Now.
func NewPublisher(w io.Writer, ring *ReplayRing, bucket *TokenBucket, clock func() time.Time) *Publisher {
	if clock == nil {
		clock = time.Now
	}
	return &Publisher{
		w:       w,
		ring:    ring,
		bucket:  bucket,
		clock:   clock,
		nextEID: 1,
	}
}

// SetPaused toggles the global pause flag: while paused, priority>0 lines
// are suppressed entirely (used to keep the passthrough channel clean).
// Priority-0 traffic is always honored.
func (p *Publisher) SetPaused(paused bool) { p.paused = paused }

// Paused returns the pause flag.
func (p *Publisher) Paused() bool { return p.paused }

// Counters returns a snapshot of the health counters.
func (p *Publisher) Counters() Counters { return p.counters }

// Ring exposes the replay ring for event retrieval.
func (p *Publisher) Ring() *ReplayRing { return p.ring }

// Publish emits one line at the given priority. It returns the assigned
// event id, or 0 if the line was dropped by the pause flag or the bucket.
func (p *Publisher) Publish(priority int, line string) uint64 {
	if priority > PriorityState {
		if p.paused {
			p.counters.Dropped++
			return 0
		}
		// Estimate the full wire size including the eid suffix and
		// terminator before an id exists.
		estimate := len(line) + len(",eid=") + eidDigits(p.nextEID) + 1
		if !p.bucket.TryConsume(estimate, p.clock()) {
			p.counters.Dropped++
			return 0
		}
	}

	eid := p.nextEID
	p.nextEID++
	full := fmt.Sprintf("%s,eid=%d", line, eid)

	if _, err := p.w.Write([]byte(full + "\n")); err != nil {
		glog.Errorf("host link write failed: %v", err)
	}
	p.ring.Append(Event{EID: eid, Priority: priority, Line: full})
	p.counters.Sent++
	p.counters.LastEID = eid
	return eid
}

// Resend writes a buffered line back to the host link verbatim. Replayed
// lines keep their original event id; they are recovery copies, not new
// events, and bypass the bucket the way their original emission already
// paid for.
func (p *Publisher) Resend(e Event) {
	if _, err := p.w.Write([]byte(e.Line + "\n")); err != nil {
		glog.Errorf("host link replay write failed: %v", err)
	}
}

func eidDigits(eid uint64) int {
	n := 1
	for eid >= 10 {
		eid /= 10
		n++
	}
	return n
}
