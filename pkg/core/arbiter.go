// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import (
	"time"

	"github.com/golang/glog"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
	"github.com/dancxjo/brainstem-pm/pkg/oi"
	"github.com/dancxjo/brainstem-pm/pkg/telemetry"
)

// feedHostByte routes one host-link byte according to the current mode.
//
// While AUTONOMOUS, a NUL is the promotion handshake and is swallowed, never
// relayed; with the raw relay configured every other byte goes straight to
// the actuator. In HOST_CONTROLLED everything feeds the line framer.
func (c *Controller) feedHostByte(b byte, now time.Time) {
	c.lastHostActivity = now

	if c.mode == ModeAutonomous {
		if b == hostlink.InterpreterByte {
			c.promote(now)
			return
		}
		if c.cfg.RawRelay {
			c.robot.Write([]byte{b})
			return
		}
	}

	line, ev := c.framer.Feed(b)
	switch ev {
	case hostlink.EventLine:
		c.dispatchLine(line, now)
	case hostlink.EventBadChar:
		c.hostBadChars++
		if c.mode == ModeHostControlled {
			c.pub.Publish(telemetry.PriorityState, hostlink.ErrParse("char"))
		}
	case hostlink.EventOverflow:
		c.hostOverflows++
		c.pub.Publish(telemetry.PriorityState, hostlink.ErrParse("overflow"))
	case hostlink.EventBadChecksum:
		c.hostCRCErrors++
		c.pub.Publish(telemetry.PriorityState, hostlink.ErrCRC())
	}
}

// dispatchLine parses a framed line and hands it to the interpreter. While
// AUTONOMOUS only the diagnostic allow-list is acted on, so stray text on
// the link cannot become an accidental host takeover.
func (c *Controller) dispatchLine(line string, now time.Time) {
	cmd, err := hostlink.ParseCommand(line)
	if err != nil {
		if c.mode == ModeHostControlled {
			c.publishParseError(err)
		} else {
			glog.V(2).Infof("ignoring malformed line while autonomous: %q", line)
		}
		return
	}

	if c.mode == ModeAutonomous && !diagnosticCommand(cmd) {
		glog.V(1).Infof("ignoring %T while autonomous", cmd)
		return
	}
	c.handleCommand(cmd, now)
}

// diagnosticCommand reports whether a command is on the always-answered
// allow-list: read-only queries with no motion or state effect.
func diagnosticCommand(cmd hostlink.Command) bool {
	switch cmd.(type) {
	case hostlink.Ping, hostlink.GetParam, hostlink.GetEvent, hostlink.Stats:
		return true
	}
	return false
}

// promote hands motion authority to the host.
func (c *Controller) promote(now time.Time) {
	if c.mode == ModeHostControlled {
		return
	}
	glog.Info("promoting to host-controlled operation")
	c.behavior.SetWanderEnabled(false)

	if c.cfg.RawRelay {
		// Reclaim the actuator link: the stream was paused for passthrough.
		c.robot.Write(oi.EncodeResumeStream())
		c.decoder.Reset()
	}
	c.pub.SetPaused(false)

	c.mode = ModeHostControlled
	c.transitionMotion(now)
	c.pub.Publish(telemetry.PriorityState, hostlink.State(hostlink.ModeHostControlled))
	c.presentation.AnnounceState(hostlink.ModeHostControlled)
}

// demote returns to autonomous operation, either on explicit PASS or after
// host-link silence.
func (c *Controller) demote(now time.Time, reason string) {
	if c.mode == ModeAutonomous {
		return
	}
	glog.Infof("demoting to autonomous operation (%s)", reason)

	c.mode = ModeAutonomous
	c.transitionMotion(now)
	c.pub.Publish(telemetry.PriorityState, hostlink.State(hostlink.ModeAutonomous))
	c.presentation.AnnounceState(hostlink.ModeAutonomous)

	if c.cfg.RawRelay {
		// Quiesce our side of the half-duplex link before the host gets it.
		c.robot.Write(oi.EncodePauseStream())
		c.pub.SetPaused(true)
	}
	c.framer.Reset()
	c.behavior.SetWanderEnabled(true)
}

// transitionMotion applies the invariant side effects of every mode change:
// targets zeroed, an immediate stop on the wire, and motion marked stale
// until the first fresh command.
func (c *Controller) transitionMotion(now time.Time) {
	c.motion.VxTarget, c.motion.WzTarget = 0, 0
	c.motion.VxActual, c.motion.WzActual = 0, 0
	c.motion.LastCommand = now
	c.motion.Stale = true
	c.staleAnnounced = true
	c.commandStop(now)
}

// checkModeTimeout demotes after sustained host silence.
func (c *Controller) checkModeTimeout(now time.Time) {
	if c.mode != ModeHostControlled {
		return
	}
	if now.Sub(c.lastHostActivity) > c.cfg.LinkTimeout {
		c.demote(now, "host link silent")
	}
}
