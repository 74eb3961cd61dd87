// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open the link and run the opening handshake, then disconnect",
	RunE:  runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opened := make(chan struct{}, 1)
	events := &xpressnet.Events{
		AfterOpen: func() { opened <- struct{}{} },
	}

	d, desc, err := connectDriver(ctx, events)
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)

	select {
	case <-opened:
		fmt.Println("handshake complete, track status:", d.TrkStatus())
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for the command station to complete the opening handshake")
	}
	return nil
}
