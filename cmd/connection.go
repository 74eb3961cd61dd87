// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
	"github.com/kazwalker/xpressnet/transport"
)

// GetPassword retrieves a WebSocket password from the environment or
// prompts the user interactively with echo disabled.
func GetPassword() (string, error) {
	if pw := os.Getenv("XN_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// openLink opens either the serial or WebSocket link based on the
// persistent connection flags.
func openLink() (xpressnet.Link, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		link, err := transport.OpenWebSocket(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return link, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		link, err := transport.OpenSerial(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return link, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// parseLIType maps the --li-type flag to an xpressnet.LIType.
func parseLIType(s string) (xpressnet.LIType, error) {
	switch strings.ToUpper(s) {
	case "LI100":
		return xpressnet.LI100, nil
	case "LI101":
		return xpressnet.LI101, nil
	case "ULI":
		return xpressnet.ULI, nil
	case "LI-USB-ETHERNET", "LIUSBETH":
		return xpressnet.LIUSBEth, nil
	default:
		return 0, fmt.Errorf("unknown --li-type %q", s)
	}
}

// connectDriver opens the configured link and connects a fresh Driver
// over it, wiring events and a stderr logger at the configured verbosity.
func connectDriver(ctx context.Context, events *xpressnet.Events) (*xpressnet.Driver, string, error) {
	link, desc, err := openLink()
	if err != nil {
		return nil, "", err
	}

	liType, err := parseLIType(liTypeFlag)
	if err != nil {
		link.Close()
		return nil, "", err
	}

	logger := xpressnet.NewStdLogger(xpressnet.LogLevel(logLevel))
	d := xpressnet.NewDriver(xpressnet.DefaultConfig(), events, logger)
	if err := d.Connect(ctx, link, liType); err != nil {
		link.Close()
		return nil, "", err
	}
	return d, desc, nil
}
