// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package xnprefs is an opt-in, file-backed store for saved connection
// preferences: which interface type, which port, at what baud rate.
// Neither the core engine nor the CLI imports this package; the CLI takes
// its connection settings from command-line flags.
package xnprefs

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// FlowControl mirrors the XN group's flowcontrol preference.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowHardware
	FlowSoftware
)

// Prefs is the "XN" preference group: interface type, port, baud rate,
// flow control and default log level for a saved connection profile.
type Prefs struct {
	Interface   string      `cbor:"interface"`
	Port        string      `cbor:"port"`
	BaudRate    int         `cbor:"baudrate"`
	FlowControl FlowControl `cbor:"flowcontrol"`
	LogLevel    int         `cbor:"loglevel"`
}

// DefaultPrefs returns the preference group's documented defaults. Port
// "auto" asks the caller to autodetect a single uLI device.
func DefaultPrefs() Prefs {
	return Prefs{
		Interface:   "LI100",
		Port:        "auto",
		BaudRate:    19200,
		FlowControl: FlowNone,
		LogLevel:    2,
	}
}

// PreferencesStore loads and saves a Prefs value. FileStore is the
// reference implementation; callers may supply their own (a keyring, a
// database row) without touching the engine.
type PreferencesStore interface {
	Load() (Prefs, error)
	Save(Prefs) error
}

// FileStore persists a single Prefs value as a CBOR-encoded file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by the file at path. The file
// need not exist yet; Load returns DefaultPrefs in that case.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the preferences file, returning DefaultPrefs if
// it does not yet exist.
func (f *FileStore) Load() (Prefs, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return DefaultPrefs(), nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("read preferences file %s: %w", f.path, err)
	}

	var p Prefs
	if err := cbor.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("decode preferences file %s: %w", f.path, err)
	}
	return p, nil
}

// Save CBOR-encodes prefs and writes it to the preferences file,
// replacing any previous contents.
func (f *FileStore) Save(p Prefs) error {
	data, err := cbor.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write preferences file %s: %w", f.path, err)
	}
	return nil
}
