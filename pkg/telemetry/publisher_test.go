// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package telemetry

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type pubFixture struct {
	out   bytes.Buffer
	now   time.Time
	pub   *Publisher
	clock func() time.Time
}

func newPubFixture(capacity, rate float64, ringSize int) *pubFixture {
	f := &pubFixture{now: time.Unix(0, 0)}
	bucket := NewTokenBucket(capacity, rate, f.now)
	ring := NewReplayRing(ringSize)
	f.pub = NewPublisher(&f.out, ring, bucket, func() time.Time { return f.now })
	return f
}

func (f *pubFixture) lines() []string {
	s := strings.TrimSuffix(f.out.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestPublisher_AppendsStrictlyIncreasingEIDs(t *testing.T) {
	f := newPubFixture(1000, 1000, 8)

	var last uint64
	for i := 0; i < 5; i++ {
		eid := f.pub.Publish(PriorityEvent, "ODOM,0.000,0.000,0.000,0.000,0.000,1")
		if eid <= last {
			t.Fatalf("eid %d not greater than previous %d", eid, last)
		}
		last = eid
	}

	lines := f.lines()
	if len(lines) != 5 {
		t.Fatalf("wrote %d lines, want 5", len(lines))
	}
	if !strings.HasSuffix(lines[0], ",eid=1") {
		t.Errorf("first line %q missing eid suffix", lines[0])
	}
}

func TestPublisher_BucketDropsLeaveNoGap(t *testing.T) {
	f := newPubFixture(40, 0, 8)

	// One short line fits, the second exhausts the bucket.
	if eid := f.pub.Publish(PriorityEvent, "TIME,100"); eid != 1 {
		t.Fatalf("first publish eid = %d, want 1", eid)
	}
	if eid := f.pub.Publish(PriorityEvent, "TIME,200"); eid != 1+1 {
		t.Fatalf("second publish eid = %d, want 2", eid)
	}
	if eid := f.pub.Publish(PriorityEvent, "TIME,300"); eid != 0 {
		t.Fatalf("third publish eid = %d, want dropped", eid)
	}
	// Drop consumed no id: the next accepted line continues the sequence.
	f.now = f.now.Add(time.Hour)
	f.pub.bucket.SetRate(1000, f.now)
	f.now = f.now.Add(time.Second)
	if eid := f.pub.Publish(PriorityEvent, "TIME,400"); eid != 3 {
		t.Errorf("post-drop publish eid = %d, want 3", eid)
	}

	c := f.pub.Counters()
	if c.Sent != 3 || c.Dropped != 1 {
		t.Errorf("counters = %+v, want Sent=3 Dropped=1", c)
	}
}

func TestPublisher_PriorityZeroBypassesBucket(t *testing.T) {
	f := newPubFixture(0, 0, 8)

	if eid := f.pub.Publish(PriorityState, "ESTOP,1,0"); eid != 1 {
		t.Errorf("priority-0 publish eid = %d, want 1", eid)
	}
	f.pub.SetPaused(true)
	if eid := f.pub.Publish(PriorityState, "STATE,ESTOP"); eid != 2 {
		t.Errorf("paused priority-0 publish eid = %d, want 2", eid)
	}
	if eid := f.pub.Publish(PriorityEvent, "TIME,1"); eid != 0 {
		t.Errorf("paused priority-1 publish eid = %d, want dropped", eid)
	}
}

func TestPublisher_RingHoldsFullLine(t *testing.T) {
	f := newPubFixture(1000, 1000, 4)

	eid := f.pub.Publish(PriorityEvent, "BUMP,1,1,7")
	e, ok := f.pub.Ring().Get(eid)
	if !ok {
		t.Fatal("published event missing from ring")
	}
	if e.Line != "BUMP,1,1,7,eid=1" {
		t.Errorf("ring line = %q, want suffix included", e.Line)
	}
}

func TestPublisher_ResendVerbatim(t *testing.T) {
	f := newPubFixture(1000, 1000, 4)

	eid := f.pub.Publish(PriorityEvent, "CLIFF,1,2,9")
	f.out.Reset()

	e, _ := f.pub.Ring().Get(eid)
	f.pub.Resend(e)
	f.pub.Resend(e)

	lines := f.lines()
	if len(lines) != 2 {
		t.Fatalf("resend wrote %d lines, want 2", len(lines))
	}
	for _, l := range lines {
		if l != "CLIFF,1,2,9,eid=1" {
			t.Errorf("resend line = %q, want original verbatim", l)
		}
	}
	// Replays assign no new ids.
	if c := f.pub.Counters(); c.LastEID != eid {
		t.Errorf("LastEID = %d after resend, want %d", c.LastEID, eid)
	}
}

func TestEIDDigits(t *testing.T) {
	tests := []struct {
		eid  uint64
		want int
	}{
		{1, 1},
		{9, 1},
		{10, 2},
		{999, 3},
		{1000, 4},
	}
	for _, tt := range tests {
		if got := eidDigits(tt.eid); got != tt.want {
			t.Errorf("eidDigits(%d) = %d, want %d", tt.eid, got, tt.want)
		}
	}
}
