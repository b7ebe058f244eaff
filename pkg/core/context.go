// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

// Package core is the brainstem controller: the mode arbiter, the fixed-rate
// safety and motion arbitration loop, the host command interpreter, and the
// single cooperative control flow that ties the host link to the actuator
// link.
//
// All mutable state lives in one Controller struct and is touched from one
// goroutine only, so there are no locks anywhere in the package.
package core

import (
	"io"
	"time"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
	"github.com/dancxjo/brainstem-pm/pkg/oi"
	"github.com/dancxjo/brainstem-pm/pkg/telemetry"
)

// Mode is the arbitration mode.
type Mode int

const (
	// ModeAutonomous is the boot default: the behavior module owns motion
	// and, when the raw relay is configured, the host talks straight
	// through to the actuator.
	ModeAutonomous Mode = iota
	// ModeHostControlled hands motion authority to the host link.
	ModeHostControlled
)

func (m Mode) String() string {
	if m == ModeHostControlled {
		return hostlink.ModeHostControlled
	}
	return hostlink.ModeAutonomous
}

// MotionState tracks commanded and dispatched velocities.
type MotionState struct {
	VxTarget, WzTarget float64 // m/s, rad/s
	VxActual, WzActual float64 // after slew limiting
	LastCommand        time.Time
	LastSeq            int
	Stale              bool
}

// SafetyState holds the time-windowed motion overrides.
type SafetyState struct {
	EstopActive   bool
	SafetyEnabled bool
	ReflexUntil   time.Time
	HesitateUntil time.Time
}

// maxRangeReadings bounds the range guard's named-reading table.
const maxRangeReadings = 4

type rangeReading struct {
	id     string
	meters float64
	valid  bool
}

// RangeGuard keeps a small fixed set of named range readings and derives
// their minimum for the arbitration loop.
type RangeGuard struct {
	readings [maxRangeReadings]rangeReading
}

// Update stores a reading under its id, claiming a free slot for a new id.
// With all slots taken, an unknown id evicts the first slot.
func (g *RangeGuard) Update(id string, meters float64) {
	for i := range g.readings {
		if g.readings[i].valid && g.readings[i].id == id {
			g.readings[i].meters = meters
			return
		}
	}
	for i := range g.readings {
		if !g.readings[i].valid {
			g.readings[i] = rangeReading{id: id, meters: meters, valid: true}
			return
		}
	}
	g.readings[0] = rangeReading{id: id, meters: meters, valid: true}
}

// Min returns the smallest valid reading and its id.
func (g *RangeGuard) Min() (float64, string, bool) {
	var (
		best   float64
		bestID string
		found  bool
	)
	for i := range g.readings {
		r := g.readings[i]
		if !r.valid {
			continue
		}
		if !found || r.meters < best {
			best, bestID, found = r.meters, r.id, true
		}
	}
	return best, bestID, found
}

// Config is the fixed (non-SET-table) controller configuration.
type Config struct {
	Build            string
	TickPeriod       time.Duration
	LinkTimeout      time.Duration // host silence before demotion
	ReflexWindow     time.Duration
	HesitateWindow   time.Duration
	WheelSeparationM float64
	MotionTimeout    time.Duration // low-level motion watchdog
	PowerTimeout     time.Duration
	LinkDownWindow   time.Duration // no valid frames before LINKDOWN

	// RawRelay enables the passthrough sub-mode while AUTONOMOUS: host and
	// actuator bytes are relayed verbatim and only the NUL handshake is
	// intercepted.
	RawRelay bool

	RingCapacity      int
	BucketCapacity    float64
	RecoveryThreshold uint64
	RecoveryWindow    time.Duration
	LowBatteryPercent int

	Validator oi.ChecksumValidator

	Presentation Presentation
	Behavior     Behavior
	Power        PowerSequencer

	// Clock is injectable for tests; nil selects time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Build:             "dev",
		TickPeriod:        20 * time.Millisecond,
		LinkTimeout:       2 * time.Second,
		ReflexWindow:      300 * time.Millisecond,
		HesitateWindow:    500 * time.Millisecond,
		WheelSeparationM:  0.26,
		MotionTimeout:     250 * time.Millisecond,
		PowerTimeout:      5 * time.Second,
		LinkDownWindow:    2 * time.Second,
		RingCapacity:      64,
		BucketCapacity:    512,
		RecoveryThreshold: 8,
		RecoveryWindow:    time.Second,
		LowBatteryPercent: 15,
		Validator:         oi.Either{},
	}
}

// Controller owns every piece of protocol, motion, safety and parser state.
type Controller struct {
	cfg    Config
	params Params

	host  io.ReadWriter // operator link
	robot io.ReadWriter // actuator link

	framer  *hostlink.Framer
	pub     *telemetry.Publisher
	bucket  *telemetry.TokenBucket
	decoder *oi.StreamDecoder
	stats   *oi.Statistics

	sensors   oi.SensorState
	requested []byte

	motion MotionState
	safety SafetyState
	ranges RangeGuard

	mode             Mode
	lastHostActivity time.Time

	watchdog motionWatchdog

	presentation Presentation
	behavior     Behavior
	power        PowerSequencer
	clock        func() time.Time

	bootTime  time.Time
	lastTick  time.Time
	lastOdom  time.Time
	lastTime  time.Time
	lastBat   time.Time
	lastState string

	linkUp         bool
	staleAnnounced bool
	lowBattery     bool
	eventSeq       int

	lastRangeMin   float64
	lastRangeMinID string

	// Host-protocol error counters surfaced via STATS.
	hostOverflows uint64
	hostCRCErrors uint64
	hostBadChars  uint64
}

// NewController wires a controller onto the two links. The actuator link is
// not touched until Boot.
func NewController(cfg Config, host, robot io.ReadWriter) *Controller {
	if cfg.Presentation == nil {
		cfg.Presentation = NoopPresentation{}
	}
	if cfg.Behavior == nil {
		cfg.Behavior = NoopBehavior{}
	}
	if cfg.Power == nil {
		cfg.Power = NoopPower{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Validator == nil {
		cfg.Validator = oi.Either{}
	}

	params := DefaultParams()
	now := cfg.Clock()
	bucket := telemetry.NewTokenBucket(cfg.BucketCapacity, params.TxBytesPerS, now)
	ring := telemetry.NewReplayRing(cfg.RingCapacity)

	c := &Controller{
		cfg:          cfg,
		params:       params,
		host:         host,
		robot:        robot,
		framer:       hostlink.NewFramer(params.MaxLineLen),
		bucket:       bucket,
		pub:          telemetry.NewPublisher(host, ring, bucket, cfg.Clock),
		decoder:      oi.NewStreamDecoder(cfg.Validator),
		stats:        oi.NewStatistics(),
		requested:    append([]byte(nil), oi.DefaultStreamPackets...),
		presentation: cfg.Presentation,
		behavior:     cfg.Behavior,
		power:        cfg.Power,
		clock:        cfg.Clock,
	}
	c.safety.SafetyEnabled = true
	c.watchdog.timeout = cfg.MotionTimeout
	return c
}

// Mode returns the current arbitration mode.
func (c *Controller) Mode() Mode { return c.mode }

// Motion returns a copy of the motion state.
func (c *Controller) Motion() MotionState { return c.motion }

// Sensors returns a copy of the cached sensor state.
func (c *Controller) Sensors() oi.SensorState { return c.sensors }

// LinkConnected reports whether the actuator link is up. Part of the
// behavior-module contract.
func (c *Controller) LinkConnected() bool { return c.linkUp }

// FeedWatchdog feeds the low-level motion watchdog on behalf of the behavior
// module when it dispatches motion itself.
func (c *Controller) FeedWatchdog() { c.watchdog.Feed(c.clock()) }

// StopAllMotors commands an immediate stop and zeroes all motion state.
// Part of the behavior-module contract.
func (c *Controller) StopAllMotors() {
	c.motion.VxTarget, c.motion.WzTarget = 0, 0
	c.motion.VxActual, c.motion.WzActual = 0, 0
	c.commandStop(c.clock())
}

func (c *Controller) nextSeq() int {
	c.eventSeq++
	return c.eventSeq
}

func (c *Controller) relayActive() bool {
	return c.mode == ModeAutonomous && c.cfg.RawRelay
}

// commandStop writes a zero drive unless the host currently owns the
// actuator link.
func (c *Controller) commandStop(now time.Time) {
	if c.relayActive() {
		return
	}
	c.robot.Write(oi.EncodeStop())
	c.watchdog.Feed(now)
}
