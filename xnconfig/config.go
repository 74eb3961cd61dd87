// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package xnconfig loads xpressnet.Config from the environment, the way
// CodedInternet-godynastat's EnvConfig does with env.Parse.
package xnconfig

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

// EnvConfig mirrors xpressnet.Config with struct tags for env.Parse.
// Durations are expressed in milliseconds because env vars are more
// naturally integers than Go duration strings.
type EnvConfig struct {
	OutIntervalMS        int `env:"XN_OUT_INTERVAL_MS" envDefault:"50"`
	PendingTimeoutMS     int `env:"XN_PENDING_TIMEOUT_MS" envDefault:"1000"`
	PendingProgTimeoutMS int `env:"XN_PENDING_PROG_TIMEOUT_MS" envDefault:"10000"`
	MaxAttempts          int `env:"XN_MAX_ATTEMPTS" envDefault:"3"`
	InputIdleTimeoutMS   int `env:"XN_INPUT_IDLE_TIMEOUT_MS" envDefault:"300"`
	MaxPending           int `env:"XN_MAX_PENDING" envDefault:"3"`
	LogLevel             int `env:"XN_LOG_LEVEL" envDefault:"2"`
}

// Load reads an EnvConfig from the process environment and converts it
// into an xpressnet.Config, normalizing out-of-range values the same way
// xpressnet.Config.Normalize does.
func Load() (xpressnet.Config, error) {
	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		return xpressnet.Config{}, fmt.Errorf("parse xpressnet env config: %w", err)
	}

	cfg := xpressnet.Config{
		OutInterval:        time.Duration(ec.OutIntervalMS) * time.Millisecond,
		PendingTimeout:     time.Duration(ec.PendingTimeoutMS) * time.Millisecond,
		PendingProgTimeout: time.Duration(ec.PendingProgTimeoutMS) * time.Millisecond,
		MaxAttempts:        ec.MaxAttempts,
		InputIdleTimeout:   time.Duration(ec.InputIdleTimeoutMS) * time.Millisecond,
		MaxPending:         ec.MaxPending,
		LogLevel:           xpressnet.LogLevel(ec.LogLevel),
	}
	return cfg.Normalize(), nil
}
