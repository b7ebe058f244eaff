// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import "time"

// Presentation renders state and hazard announcements (LEDs, audio). The
// controller only decides when to announce; rendering lives elsewhere.
type Presentation interface {
	AnnounceState(state string)
	AnnounceHazard(kind string)
	SetLeds(mask uint32)
}

// Behavior is the autonomy module's side of the contract. The controller
// enables or disables wandering on mode transitions, forwards hazard
// notifications, and consults HazardStop each tick; everything else the
// behavior module does goes through the Controller's exported methods
// (StopAllMotors, FeedWatchdog, LinkConnected).
type Behavior interface {
	SetWanderEnabled(enabled bool)
	NotifyHazard(kind string, mask uint8)
	HazardStop() bool
}

// PowerSequencer brings the actuator controller to a powered, ready state
// before initialization. The controller cares only about readiness timing.
type PowerSequencer interface {
	WaitReady(timeout time.Duration) error
}

// NoopPresentation, NoopBehavior and NoopPower are the defaults when no
// collaborator is attached.
type NoopPresentation struct{}

func (NoopPresentation) AnnounceState(string)  {}
func (NoopPresentation) AnnounceHazard(string) {}
func (NoopPresentation) SetLeds(uint32)        {}

type NoopBehavior struct{}

func (NoopBehavior) SetWanderEnabled(bool)      {}
func (NoopBehavior) NotifyHazard(string, uint8) {}
func (NoopBehavior) HazardStop() bool           { return false }

type NoopPower struct{}

func (NoopPower) WaitReady(time.Duration) error { return nil }
