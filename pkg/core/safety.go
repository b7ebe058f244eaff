// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import (
	"math"
	"time"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
	"github.com/dancxjo/brainstem-pm/pkg/oi"
	"github.com/dancxjo/brainstem-pm/pkg/telemetry"
)

// safetyTick is the fixed-period arbitration pass: watchdog, goal selection,
// slew limiting, kinematic mapping, dispatch, state and cadenced telemetry.
func (c *Controller) safetyTick(now time.Time) {
	dt := now.Sub(c.lastTick).Seconds()
	c.lastTick = now
	if dt <= 0 || dt > 1 {
		// First tick, or the loop stalled; do not integrate a bogus interval.
		dt = c.cfg.TickPeriod.Seconds()
	}

	c.checkStaleness(now)

	goalVx, goalWz, hard := c.selectGoal(now)

	if hard {
		// Estop-class overrides bypass slew: the wheels must read exactly
		// zero on this very dispatch.
		c.motion.VxActual, c.motion.WzActual = 0, 0
	} else {
		c.motion.VxActual = slewToward(c.motion.VxActual, goalVx, c.params.SlewV*dt)
		c.motion.WzActual = slewToward(c.motion.WzActual, goalWz, c.params.SlewW*dt)
	}

	if !c.relayActive() {
		right, left := wheelSpeeds(c.motion.VxActual, c.motion.WzActual, c.cfg.WheelSeparationM)
		c.robot.Write(oi.EncodeDriveDirect(right, left))
		c.watchdog.Feed(now)
	}

	c.publishState(now)
	c.publishCadenced(now)
}

// checkStaleness runs the command-staleness watchdog. The STALE event is
// edge-triggered; the condition itself persists silently.
func (c *Controller) checkStaleness(now time.Time) {
	if c.mode != ModeHostControlled || c.motion.LastCommand.IsZero() {
		return
	}
	since := now.Sub(c.motion.LastCommand)
	if since <= time.Duration(c.params.WatchdogMS)*time.Millisecond {
		return
	}
	c.motion.Stale = true
	if !c.staleAnnounced {
		c.staleAnnounced = true
		c.pub.Publish(telemetry.PriorityState, hostlink.Stale(since.Milliseconds()))
	}
}

// selectGoal picks the commanded velocity under the strict override
// precedence. The returned hard flag marks estop-class overrides that must
// not be slew-smoothed.
func (c *Controller) selectGoal(now time.Time) (vx, wz float64, hard bool) {
	vx, wz = c.motion.VxTarget, c.motion.WzTarget
	if c.motion.Stale {
		vx, wz = 0, 0
	}

	switch {
	case c.safety.EstopActive || !c.safety.SafetyEnabled:
		return 0, 0, true

	case c.behavior.HazardStop():
		return 0, 0, true

	case now.Before(c.safety.ReflexUntil):
		return 0, 0, true

	case now.Before(c.safety.HesitateUntil):
		return 0, 0, false
	}

	min, id, ok := c.ranges.Min()
	if !ok || vx <= 0 {
		return vx, wz, false
	}

	if min < c.params.HardStopM {
		c.triggerReflex(now, "range", 0)
		c.pub.Publish(telemetry.PriorityState, hostlink.RangeMin(min, id, c.nextSeq()))
		return 0, 0, true
	}
	if min < c.params.SoftStopM {
		span := c.params.SoftStopM - c.params.HardStopM
		if span > 0 {
			scale := (min - c.params.HardStopM) / span
			vx *= clamp01(scale)
		}
	}
	return vx, wz, false
}

// triggerReflex stops motion immediately, opens the reflex and hesitate
// windows, and announces the startle. The stop goes on the wire before any
// telemetry.
func (c *Controller) triggerReflex(now time.Time, reason string, mask uint8) {
	c.motion.VxActual, c.motion.WzActual = 0, 0
	c.commandStop(now)
	c.safety.ReflexUntil = now.Add(c.cfg.ReflexWindow)
	c.safety.HesitateUntil = c.safety.ReflexUntil.Add(c.cfg.HesitateWindow)

	c.pub.Publish(telemetry.PriorityState, hostlink.Startle(reason, mask, c.nextSeq()))
	c.presentation.AnnounceHazard(reason)
	c.behavior.NotifyHazard(reason, mask)
}

// publishState emits the overall arbitration state, highest precedence
// first, only when it changes.
func (c *Controller) publishState(now time.Time) {
	s := c.arbitrationState(now)
	if s == c.lastState {
		return
	}
	c.lastState = s
	c.pub.Publish(telemetry.PriorityState, hostlink.State(s))
	c.presentation.AnnounceState(s)
}

func (c *Controller) arbitrationState(now time.Time) string {
	switch {
	case !c.linkUp:
		return hostlink.StateLinkDown
	case c.safety.EstopActive || !c.safety.SafetyEnabled:
		return hostlink.StateEstop
	case now.Before(c.safety.ReflexUntil) || now.Before(c.safety.HesitateUntil):
		return hostlink.StateReflex
	case c.mode == ModeHostControlled && c.motion.Stale:
		return hostlink.StateStale
	case c.mode == ModeHostControlled:
		return hostlink.StateTeleop
	}
	return hostlink.StateIdle
}

// publishCadenced emits ODOM, TIME and BAT at their own periods.
func (c *Controller) publishCadenced(now time.Time) {
	if c.params.OdomHz > 0 {
		period := time.Duration(float64(time.Second) / c.params.OdomHz)
		if now.Sub(c.lastOdom) >= period {
			c.lastOdom = now
			c.pub.Publish(telemetry.PriorityEvent, hostlink.Odom(
				c.sensors.X, c.sensors.Y, c.sensors.Theta,
				c.motion.VxActual, c.motion.WzActual, c.nextSeq()))
		}
	}

	if now.Sub(c.lastTime) >= time.Second {
		c.lastTime = now
		c.pub.Publish(telemetry.PriorityBulk,
			hostlink.Time(now.Sub(c.bootTime).Milliseconds()))
	}

	if now.Sub(c.lastBat) >= 5*time.Second {
		c.lastBat = now
		c.pub.Publish(telemetry.PriorityBulk, hostlink.Bat(
			c.sensors.BatteryMilliVolts, c.sensors.BatteryPercent(), false))
	}
}

// slewToward moves actual toward goal by at most step.
func slewToward(actual, goal, step float64) float64 {
	d := goal - actual
	if d > step {
		return actual + step
	}
	if d < -step {
		return actual - step
	}
	return goal
}

// wheelSpeeds maps a twist onto differential wheel speeds in the actuator's
// native mm/s, rounded to the nearest unit and clamped by the codec.
func wheelSpeeds(vx, wz, separation float64) (right, left int16) {
	r := vx + wz*separation/2
	l := vx - wz*separation/2
	return mmPerSec(r), mmPerSec(l)
}

func mmPerSec(metersPerSec float64) int16 {
	v := math.Round(metersPerSec * 1000)
	if v > oi.MaxWheelSpeed {
		v = oi.MaxWheelSpeed
	}
	if v < oi.MinWheelSpeed {
		v = oi.MinWheelSpeed
	}
	return int16(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
