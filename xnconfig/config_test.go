// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xnconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.OutInterval)
	assert.Equal(t, 1000*time.Millisecond, cfg.PendingTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 3, cfg.MaxPending)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XN_OUT_INTERVAL_MS", "75")
	t.Setenv("XN_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 75*time.Millisecond, cfg.OutInterval)
	assert.Equal(t, 5, cfg.MaxAttempts)
}

func TestLoad_OutIntervalClampedByNormalize(t *testing.T) {
	t.Setenv("XN_OUT_INTERVAL_MS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.OutInterval, "Normalize clamps below the documented floor")
}
