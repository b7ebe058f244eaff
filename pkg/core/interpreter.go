// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
	"github.com/dancxjo/brainstem-pm/pkg/telemetry"
)

// handleCommand dispatches one parsed command. The switch is exhaustive over
// the closed command type; a new variant without a case here is visible in
// review rather than silently ignored on the wire.
func (c *Controller) handleCommand(cmd hostlink.Command, now time.Time) {
	switch v := cmd.(type) {
	case hostlink.Twist:
		c.handleTwist(v, now)

	case hostlink.Safe:
		c.handleSafe(v, now)

	case hostlink.Led:
		c.presentation.SetLeds(v.Mask)
		c.pub.Publish(telemetry.PriorityState,
			hostlink.Ack(hostlink.VerbLed, strconv.FormatUint(uint64(v.Mask), 10)))

	case hostlink.Ping:
		c.pub.Publish(telemetry.PriorityState, hostlink.Pong(v.Seq))

	case hostlink.Pause:
		c.pub.SetPaused(true)
		c.pub.Publish(telemetry.PriorityState, hostlink.Ack(hostlink.VerbPause))

	case hostlink.Resume:
		c.pub.SetPaused(false)
		c.pub.Publish(telemetry.PriorityState, hostlink.Ack(hostlink.VerbResume))

	case hostlink.Pass:
		c.pub.Publish(telemetry.PriorityState, hostlink.Ack(hostlink.VerbPass))
		c.demote(now, "explicit PASS")

	case hostlink.Range:
		c.handleRange(v, now)

	case hostlink.SetParam:
		c.handleSet(v, now)

	case hostlink.GetParam:
		c.handleGet(v)

	case hostlink.GetEvent:
		if e, ok := c.pub.Ring().Get(v.EID); ok {
			c.pub.Resend(e)
		} else {
			c.pub.Publish(telemetry.PriorityState, hostlink.ErrEvtMissing())
		}

	case hostlink.Replay:
		for _, e := range c.pub.Ring().Since(v.SinceEID) {
			c.pub.Resend(e)
		}

	case hostlink.Stats:
		c.pub.Publish(telemetry.PriorityState, c.statsLine())
	}
}

func (c *Controller) handleTwist(v hostlink.Twist, now time.Time) {
	c.motion.VxTarget = v.Vx
	c.motion.WzTarget = v.Wz
	c.motion.LastCommand = now
	c.motion.LastSeq = v.Seq
	c.motion.Stale = false
	c.staleAnnounced = false

	// A fresh command cuts a pending hesitation short; the reflex window
	// itself is not negotiable.
	if now.After(c.safety.ReflexUntil) && now.Before(c.safety.HesitateUntil) {
		c.safety.HesitateUntil = now
	}

	c.pub.Publish(telemetry.PriorityState, hostlink.AckTwist(v.Vx, v.Wz, v.Seq))
}

func (c *Controller) handleSafe(v hostlink.Safe, now time.Time) {
	c.safety.SafetyEnabled = v.Enabled
	wasActive := c.safety.EstopActive
	c.safety.EstopActive = !v.Enabled

	c.pub.Publish(telemetry.PriorityState,
		hostlink.Ack(hostlink.VerbSafe, boolArg(v.Enabled)))

	if c.safety.EstopActive != wasActive {
		if c.safety.EstopActive {
			// Do not wait for the next tick.
			c.motion.VxActual, c.motion.WzActual = 0, 0
			c.commandStop(now)
			c.presentation.AnnounceHazard("estop")
		}
		c.pub.Publish(telemetry.PriorityState,
			hostlink.Estop(c.safety.EstopActive, c.nextSeq()))
	}
}

func (c *Controller) handleRange(v hostlink.Range, now time.Time) {
	c.ranges.Update(v.ID, v.Meters)
	c.pub.Publish(telemetry.PriorityState,
		hostlink.Ack(hostlink.VerbRange, formatFloat(v.Meters), v.ID))

	if min, id, ok := c.ranges.Min(); ok {
		if min != c.lastRangeMin || id != c.lastRangeMinID {
			c.lastRangeMin, c.lastRangeMinID = min, id
			c.pub.Publish(telemetry.PriorityEvent, hostlink.RangeMin(min, id, c.nextSeq()))
		}
	}
}

func (c *Controller) handleSet(v hostlink.SetParam, now time.Time) {
	if err := c.params.Set(v.Key, v.Value); err != nil {
		if errors.Is(err, ErrBadValue) {
			c.pub.Publish(telemetry.PriorityState, hostlink.ErrParse("num"))
		} else {
			c.pub.Publish(telemetry.PriorityState, hostlink.ErrParam(v.Key))
		}
		return
	}
	c.applyParam(v.Key, now)
	c.pub.Publish(telemetry.PriorityState,
		hostlink.Ack(hostlink.VerbSet, v.Key, v.Value))
}

func (c *Controller) handleGet(v hostlink.GetParam) {
	value, ok := c.params.Get(v.Key)
	if !ok {
		c.pub.Publish(telemetry.PriorityState, hostlink.ErrParam(v.Key))
		return
	}
	c.pub.Publish(telemetry.PriorityState,
		hostlink.Ack(hostlink.VerbGet, v.Key, value))
}

// applyParam propagates a changed parameter into the component that consumes
// it. Parameters not listed are read each tick and need no push.
func (c *Controller) applyParam(key string, now time.Time) {
	switch key {
	case hostlink.KeyTxBudget:
		c.bucket.SetRate(c.params.TxBytesPerS, now)
	case hostlink.KeyMaxLine:
		c.framer.SetMaxLen(c.params.MaxLineLen)
	case hostlink.KeyLogLevel:
		if err := flag.Set("v", strconv.Itoa(c.params.LogLevel)); err != nil {
			glog.Errorf("setting log verbosity: %v", err)
		}
	}
}

// statsLine formats the counters report.
func (c *Controller) statsLine() string {
	pc := c.pub.Counters()
	return fmt.Sprintf(
		"STATS,drops=%d,overflow=%d,crc=%d,char=%d,frames=%d,frame_err=%d,recover=%d,last_eid=%d",
		pc.Dropped, c.hostOverflows, c.hostCRCErrors, c.hostBadChars,
		c.stats.ValidFrames, c.stats.Errors(), c.stats.Recoveries, pc.LastEID)
}

// publishParseError maps a parse failure onto the wire error taxonomy.
func (c *Controller) publishParseError(err error) {
	var perr *hostlink.ParseError
	if errors.As(err, &perr) {
		c.pub.Publish(telemetry.PriorityState, hostlink.Err(perr.Kind, perr.Detail))
		return
	}
	c.pub.Publish(telemetry.PriorityState, hostlink.ErrParse("line"))
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
