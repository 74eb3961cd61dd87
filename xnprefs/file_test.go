// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xnprefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_LoadMissingReturnsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "prefs.cbor"))

	p, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPrefs(), p)
}

func TestFileStore_SaveThenLoadRoundTrips(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "prefs.cbor"))

	want := Prefs{
		Interface:   "LI-USB-Ethernet",
		Port:        "192.168.1.50:5550",
		BaudRate:    19200,
		FlowControl: FlowHardware,
		LogLevel:    4,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
