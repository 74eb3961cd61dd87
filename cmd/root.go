// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags (LI-USB-Ethernet bridges)
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Protocol flags
	liTypeFlag string
	logLevel   int
)

var rootCmd = &cobra.Command{
	Use:   "xncli",
	Short: "XpressNET command-station driver and CLI",
	Long: `xncli drives a Lenz XpressNET command station over a serial LI100/
LI101/uLI adapter or a WebSocket-tunnelled LI-USB-Ethernet bridge.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 19200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the XN_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 19200, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&liTypeFlag, "li-type", "LI100", "Adapter type: LI100, LI101, uLI, LI-USB-Ethernet")
	rootCmd.PersistentFlags().IntVarP(&logLevel, "verbosity", "v", 2, "Log level 0 (none) to 6 (debug)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
