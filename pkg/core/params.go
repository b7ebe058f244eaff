// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
)

// Params are the runtime-settable operating parameters, accessed over the
// host link with SET and GET.
type Params struct {
	SoftStopM   float64 // range guard: start scaling forward velocity
	HardStopM   float64 // range guard: forbid forward motion
	WatchdogMS  int64   // command-staleness watchdog
	OdomHz      float64 // ODOM telemetry cadence
	SlewV       float64 // linear slew limit, m/s per second
	SlewW       float64 // angular slew limit, rad/s per second
	TxBytesPerS float64 // telemetry bucket refill rate
	MaxLineLen  int     // host-link line cap
	LogLevel    int     // glog verbosity
}

// DefaultParams returns the boot-time parameter set.
func DefaultParams() Params {
	return Params{
		SoftStopM:   0.5,
		HardStopM:   0.2,
		WatchdogMS:  600,
		OdomHz:      5,
		SlewV:       0.8,
		SlewW:       2.5,
		TxBytesPerS: 2048,
		MaxLineLen:  hostlink.DefaultMaxLineLen,
		LogLevel:    0,
	}
}

// ErrUnknownKey and ErrBadValue distinguish the two SET/GET failure modes so
// the interpreter can report ERR,param versus ERR,parse,num.
var (
	ErrUnknownKey = errors.New("core: unknown parameter key")
	ErrBadValue   = errors.New("core: invalid parameter value")
)

// Set parses and stores one parameter. Numeric parsing is strict and values
// must be non-negative.
func (p *Params) Set(key, value string) error {
	switch key {
	case hostlink.KeySoftStop:
		return setFloat(&p.SoftStopM, value)
	case hostlink.KeyHardStop:
		return setFloat(&p.HardStopM, value)
	case hostlink.KeyWatchdog:
		return setInt64(&p.WatchdogMS, value)
	case hostlink.KeyOdomHz:
		return setFloat(&p.OdomHz, value)
	case hostlink.KeySlewV:
		return setFloat(&p.SlewV, value)
	case hostlink.KeySlewW:
		return setFloat(&p.SlewW, value)
	case hostlink.KeyTxBudget:
		return setFloat(&p.TxBytesPerS, value)
	case hostlink.KeyMaxLine:
		return setIntValue(&p.MaxLineLen, value)
	case hostlink.KeyLogLevel:
		return setIntValue(&p.LogLevel, value)
	}
	return ErrUnknownKey
}

// Get formats one parameter for an ACK echo.
func (p *Params) Get(key string) (string, bool) {
	switch key {
	case hostlink.KeySoftStop:
		return formatFloat(p.SoftStopM), true
	case hostlink.KeyHardStop:
		return formatFloat(p.HardStopM), true
	case hostlink.KeyWatchdog:
		return strconv.FormatInt(p.WatchdogMS, 10), true
	case hostlink.KeyOdomHz:
		return formatFloat(p.OdomHz), true
	case hostlink.KeySlewV:
		return formatFloat(p.SlewV), true
	case hostlink.KeySlewW:
		return formatFloat(p.SlewW), true
	case hostlink.KeyTxBudget:
		return formatFloat(p.TxBytesPerS), true
	case hostlink.KeyMaxLine:
		return strconv.Itoa(p.MaxLineLen), true
	case hostlink.KeyLogLevel:
		return strconv.Itoa(p.LogLevel), true
	}
	return "", false
}

func setFloat(dst *float64, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	// NaN fails every comparison it ever enters, so a NaN limit would
	// silently disable the guard that reads it.
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrBadValue
	}
	*dst = v
	return nil
}

func setInt64(dst *int64, value string) error {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil || v < 0 {
		return ErrBadValue
	}
	*dst = v
	return nil
}

func setIntValue(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil || v < 0 {
		return ErrBadValue
	}
	*dst = v
	return nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
