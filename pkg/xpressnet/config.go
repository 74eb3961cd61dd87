// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

import "time"

// LIType designates the adapter variant, which governs framing (LIUSBEth
// wraps frames in an envelope) and which commands the adapter itself
// acknowledges locally.
type LIType int

const (
	LI100 LIType = iota
	LI101
	ULI
	LIUSBEth
)

// Config holds the engine's tunable parameters. Normalize replaces
// zero-valued fields other than LogLevel by their defaults.
type Config struct {
	OutInterval        time.Duration
	PendingTimeout     time.Duration
	PendingProgTimeout time.Duration
	MaxAttempts        int
	InputIdleTimeout   time.Duration
	LogLevel           LogLevel
	MaxPending         int
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		OutInterval:        50 * time.Millisecond,
		PendingTimeout:     1000 * time.Millisecond,
		PendingProgTimeout: 10000 * time.Millisecond,
		MaxAttempts:        3,
		InputIdleTimeout:   300 * time.Millisecond,
		LogLevel:           LogWarning,
		MaxPending:         3,
	}
}

// Normalize fills zero-valued fields with defaults and clamps OutInterval to
// the documented [50ms, 500ms] range.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.OutInterval == 0 {
		c.OutInterval = d.OutInterval
	}
	if c.OutInterval < 50*time.Millisecond {
		c.OutInterval = 50 * time.Millisecond
	}
	if c.OutInterval > 500*time.Millisecond {
		c.OutInterval = 500 * time.Millisecond
	}
	if c.PendingTimeout == 0 {
		c.PendingTimeout = d.PendingTimeout
	}
	if c.PendingProgTimeout == 0 {
		c.PendingProgTimeout = d.PendingProgTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InputIdleTimeout == 0 {
		c.InputIdleTimeout = d.InputIdleTimeout
	}
	if c.MaxPending == 0 {
		c.MaxPending = d.MaxPending
	}
	return c
}
