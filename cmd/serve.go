// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
	"github.com/kazwalker/xpressnet/xnstatus"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect and expose a read-only status endpoint (GET /status, GET /queue)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", ":8420", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	d, desc, err := connectDriver(ctx, &xpressnet.Events{})
	if err != nil {
		return err
	}
	defer d.Disconnect()

	fmt.Println("connected:", desc)
	fmt.Println("serving status on", serveAddr)
	return xnstatus.Serve(serveAddr, d)
}
