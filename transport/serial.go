// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the concrete xpressnet.Link implementations:
// a direct serial connection to an LI100/LI101/ULI adapter, and a
// WebSocket tunnel to an LI-USB-Ethernet style bridge.
package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialLink wraps a serial port as an xpressnet.Link.
type SerialLink struct {
	port serial.Port
	name string
}

func (s *SerialLink) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialLink) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *SerialLink) Close() error                { return s.port.Close() }

// String reports the port name, for logging and status reporting.
func (s *SerialLink) String() string { return s.name }

// OpenSerial opens an XpressNET serial port at baudRate, 8N1. A baudRate
// of zero or less selects 19200.
func OpenSerial(portName string, baudRate int) (*SerialLink, error) {
	if baudRate <= 0 {
		baudRate = 19200
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	return &SerialLink{port: port, name: portName}, nil
}

// ListPorts enumerates serial ports the host knows about, for the
// `ports` CLI subcommand.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
