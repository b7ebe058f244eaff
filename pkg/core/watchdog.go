// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import "time"

// motionWatchdog is the low-level stop-of-last-resort, independent of the
// command-staleness watchdog. It is fed whenever a drive command is actually
// dispatched; if it starves, housekeeping forces a stop no matter what the
// arbitration path is doing.
type motionWatchdog struct {
	lastFed time.Time
	timeout time.Duration
	tripped bool
}

// Feed records a dispatched drive.
func (w *motionWatchdog) Feed(now time.Time) {
	w.lastFed = now
	w.tripped = false
}

// Expired reports starvation. It stays false until the first feed so the
// watchdog cannot fire before the actuator link is initialized.
func (w *motionWatchdog) Expired(now time.Time) bool {
	if w.lastFed.IsZero() {
		return false
	}
	return now.Sub(w.lastFed) > w.timeout
}
