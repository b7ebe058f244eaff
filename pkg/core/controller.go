// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
	"github.com/dancxjo/brainstem-pm/pkg/oi"
	"github.com/dancxjo/brainstem-pm/pkg/telemetry"
)

// Per-step drain bounds. The loop must stay responsive even when a link is
// firehosing, so each step consumes at most this many bytes per side.
const (
	maxHostDrain  = 256
	maxRobotDrain = 512
)

// Boot powers the actuator, enters the OI, verifies the link with one
// bounded query, configures the sensor stream and announces itself. A dead
// actuator link degrades to LINKDOWN; it is not fatal.
func (c *Controller) Boot() error {
	now := c.clock()
	c.bootTime = now
	c.lastTick = now
	c.lastHostActivity = now

	if err := c.power.WaitReady(c.cfg.PowerTimeout); err != nil {
		return fmt.Errorf("core: power sequencing failed: %w", err)
	}

	c.robot.Write(oi.EncodeStart())
	time.Sleep(50 * time.Millisecond)
	c.robot.Write(oi.EncodeSafe())

	if _, err := oi.QuerySensor(c.robot, oi.PacketVoltage, 500*time.Millisecond); err != nil {
		glog.Warningf("actuator link not responding: %v", err)
		c.linkUp = false
	} else {
		c.linkUp = true
	}

	c.robot.Write(oi.EncodeStream(c.requested))
	c.commandStop(now)

	c.pub.Publish(telemetry.PriorityState, hostlink.Hello(c.cfg.Build))
	c.pub.Publish(telemetry.PriorityState, hostlink.Link(c.linkUp, c.nextSeq()))

	if c.cfg.RawRelay {
		// Boot lands in AUTONOMOUS with the relay armed; quiesce our side.
		c.robot.Write(oi.EncodePauseStream())
		c.pub.SetPaused(true)
	}
	c.behavior.SetWanderEnabled(true)
	return nil
}

// Run drives the cooperative loop until stop is closed.
func (c *Controller) Run(stop <-chan struct{}) error {
	if err := c.Boot(); err != nil {
		return err
	}
	for {
		select {
		case <-stop:
			c.shutdown()
			return nil
		default:
		}
		c.Step(c.clock())
		time.Sleep(2 * time.Millisecond)
	}
}

// Step is one iteration of the control flow: bounded host drain, bounded
// actuator drain, the safety tick when due, then housekeeping. Exported so
// tests can run the controller against an injected clock.
func (c *Controller) Step(now time.Time) {
	c.drainHost(now)
	c.drainRobot(now)
	if now.Sub(c.lastTick) >= c.cfg.TickPeriod {
		c.safetyTick(now)
	}
	c.housekeeping(now)
}

func (c *Controller) drainHost(now time.Time) {
	var buf [64]byte
	drained := 0
	for drained < maxHostDrain {
		n, err := c.host.Read(buf[:])
		if err != nil || n == 0 {
			return
		}
		drained += n
		for _, b := range buf[:n] {
			c.feedHostByte(b, now)
		}
	}
}

func (c *Controller) drainRobot(now time.Time) {
	var buf [64]byte
	drained := 0
	for drained < maxRobotDrain {
		n, err := c.robot.Read(buf[:])
		if err != nil || n == 0 {
			return
		}
		drained += n
		if c.relayActive() {
			c.host.Write(buf[:n])
			continue
		}
		for _, b := range buf[:n] {
			c.feedRobotByte(b, now)
		}
	}
}

func (c *Controller) feedRobotByte(b byte, now time.Time) {
	frame, err := c.decoder.Feed(b)
	if err != nil {
		// Counters only; per-occurrence telemetry would eat the budget.
		c.stats.RecordError(err)
		return
	}
	if frame == nil {
		return
	}
	c.stats.RecordFrame(now)
	c.applyFrame(frame, now)
}

// applyFrame folds a validated frame into the cached sensors, then reacts to
// hazard edges. Safety actions go on the wire before their telemetry.
func (c *Controller) applyFrame(frame *oi.Frame, now time.Time) {
	c.sensors.BeginFrame(now)
	if err := oi.ApplyFrame(&c.sensors, frame, c.requested); err != nil {
		c.stats.RecordLayoutError()
		return
	}

	if mask := c.sensors.BumpEdge(); mask != 0 {
		c.triggerReflex(now, "bump", mask)
		c.pub.Publish(telemetry.PriorityState, hostlink.Bump(mask, c.nextSeq()))
	}
	if mask := c.sensors.CliffEdge(); mask != 0 {
		c.triggerReflex(now, "cliff", mask)
		c.pub.Publish(telemetry.PriorityState, hostlink.Cliff(mask, c.nextSeq()))
	}
	if mask := c.sensors.WheelDropEdge(); mask != 0 {
		c.triggerReflex(now, "wheeldrop", mask)
	}
	if mask := c.sensors.ButtonEdge(); mask != 0 {
		c.behavior.NotifyHazard("button", mask)
	}

	c.checkBattery(now)
}

// checkBattery surfaces the low-battery crossing once and flags the behavior
// module so it can head home or idle down.
func (c *Controller) checkBattery(now time.Time) {
	low := c.sensors.BatteryPercent() < c.cfg.LowBatteryPercent
	if low == c.lowBattery {
		return
	}
	c.lowBattery = low
	if low {
		glog.Warningf("battery low: %d%% (%d mV)",
			c.sensors.BatteryPercent(), c.sensors.BatteryMilliVolts)
		c.behavior.NotifyHazard("battery", 0)
		c.pub.Publish(telemetry.PriorityState, hostlink.Bat(
			c.sensors.BatteryMilliVolts, c.sensors.BatteryPercent(), false))
	}
}

// housekeeping runs the per-step maintenance that is not tick-aligned: mode
// timeout, low-level watchdog enforcement, stream recovery and actuator link
// supervision.
func (c *Controller) housekeeping(now time.Time) {
	c.checkModeTimeout(now)

	if !c.relayActive() && c.watchdog.Expired(now) {
		if !c.watchdog.tripped {
			glog.Error("motion watchdog starved, forcing stop")
		}
		c.robot.Write(oi.EncodeStop())
		c.watchdog.Feed(now)
		c.watchdog.tripped = true
	}

	if !c.relayActive() {
		if c.stats.NeedsRecovery(c.cfg.RecoveryThreshold, c.cfg.RecoveryWindow, now) {
			c.recoverStream(now)
		}
		c.checkLink(now)
	}
}

// recoverStream reconfigures a persistently failing sensor stream: pause,
// reissue the subscription, drain stale bytes, reset counters.
func (c *Controller) recoverStream(now time.Time) {
	glog.Warningf("sensor stream unhealthy (%d errors), reconfiguring", c.stats.Errors())

	c.robot.Write(oi.EncodePauseStream())
	c.robot.Write(oi.EncodeStream(c.requested))

	var buf [64]byte
	for i := 0; i < 8; i++ {
		n, err := c.robot.Read(buf[:])
		if err != nil || n == 0 {
			break
		}
	}

	c.decoder.Reset()
	c.decoder.ResetCounters()
	c.stats.RecordRecovery(now)
}

// checkLink tracks actuator link presence from stream liveness and reports
// transitions with LINK lines.
func (c *Controller) checkLink(now time.Time) {
	lastValid := c.stats.LastValidFrame
	if lastValid.IsZero() {
		// No validated frame yet: keep the boot-time assessment until the
		// grace window runs out.
		if c.linkUp && now.Sub(c.bootTime) > c.cfg.LinkDownWindow {
			c.setLinkUp(false)
		}
		return
	}
	up := now.Sub(lastValid) <= c.cfg.LinkDownWindow
	if up != c.linkUp {
		c.setLinkUp(up)
	}
}

func (c *Controller) setLinkUp(up bool) {
	c.linkUp = up
	if up {
		glog.Info("actuator link recovered")
	} else {
		glog.Error("actuator link lost")
	}
	c.pub.Publish(telemetry.PriorityState, hostlink.Link(up, c.nextSeq()))
}

func (c *Controller) shutdown() {
	c.robot.Write(oi.EncodeStop())
	c.robot.Write(oi.EncodePauseStream())
	glog.Info("controller stopped")
	glog.Flush()
}
