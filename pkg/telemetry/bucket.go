// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

// Package telemetry paces and persists outbound host-link telemetry: a token
// bucket bounds the byte rate of non-critical lines, and a fixed-capacity
// replay ring keeps recent lines addressable by event id for at-least-once
// recovery after a transient drop.
package telemetry

import "time"

// TokenBucket meters priority>0 telemetry bytes. Tokens accrue continuously
// at rate/1000 per elapsed millisecond, capped at capacity, and a message
// either fits now or is dropped; nothing is ever queued.
type TokenBucket struct {
	tokens     float64
	capacity   float64
	rate       float64 // bytes per second
	lastRefill time.Time
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(capacity, bytesPerSec float64, now time.Time) *TokenBucket {
	if capacity < 0 {
		capacity = 0
	}
	return &TokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		rate:       bytesPerSec,
		lastRefill: now,
	}
}

// SetRate changes the refill rate (tx_bytes_per_s parameter). Accrued
// tokens are settled at the old rate first.
func (b *TokenBucket) SetRate(bytesPerSec float64, now time.Time) {
	b.refill(now)
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	b.rate = bytesPerSec
}

// Tokens returns the current token count after settling accrual.
func (b *TokenBucket) Tokens(now time.Time) float64 {
	b.refill(now)
	return b.tokens
}

// TryConsume takes n tokens if available and reports whether it did.
func (b *TokenBucket) TryConsume(n int, now time.Time) bool {
	b.refill(now)
	if float64(n) > b.tokens {
		return false
	}
	b.tokens -= float64(n)
	return true
}

func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	b.lastRefill = now
	if elapsed <= 0 {
		return
	}
	b.tokens += b.rate * elapsed.Seconds()
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}
