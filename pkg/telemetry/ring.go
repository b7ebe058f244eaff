// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package telemetry

// Event is one emitted telemetry line held for replay.
type Event struct {
	EID      uint64
	Priority int
	Line     string // full line including the ,eid= suffix
}

// ReplayRing is a fixed-capacity buffer of recent events. The oldest entry
// is silently evicted on overflow; asking for an evicted id is "not found",
// never an error. Capacity can be as small as one entry on constrained
// deployments.
type ReplayRing struct {
	entries []Event
	next    int
	count   int
}

// NewReplayRing creates a ring holding up to capacity events (minimum 1).
func NewReplayRing(capacity int) *ReplayRing {
	if capacity < 1 {
		capacity = 1
	}
	return &ReplayRing{entries: make([]Event, capacity)}
}

// Capacity returns the fixed slot count.
func (r *ReplayRing) Capacity() int { return len(r.entries) }

// Len returns the number of live entries.
func (r *ReplayRing) Len() int { return r.count }

// Append stores an event, overwriting the oldest slot when full.
func (r *ReplayRing) Append(e Event) {
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

// Get returns the still-buffered event with the exact id.
func (r *ReplayRing) Get(eid uint64) (Event, bool) {
	for _, e := range r.snapshot() {
		if e.EID == eid {
			return e, true
		}
	}
	return Event{}, false
}

// Since returns every still-buffered event with id greater than eid, in
// ascending original order.
func (r *ReplayRing) Since(eid uint64) []Event {
	var out []Event
	for _, e := range r.snapshot() {
		if e.EID > eid {
			out = append(out, e)
		}
	}
	return out
}

// snapshot walks oldest to newest. Event ids are assigned in insertion
// order, so the walk is ascending by id as well.
func (r *ReplayRing) snapshot() []Event {
	out := make([]Event, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.entries)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}
