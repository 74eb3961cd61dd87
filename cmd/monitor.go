// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Connect and print track status and accessory feedback until interrupted",
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := &xpressnet.Events{
		OnTrkStatusChanged: func(s xpressnet.TrkStatus) { fmt.Println("track:", s) },
		OnLocoStolen: func(addr xpressnet.LocoAddr) {
			fmt.Printf("loco %s acquired by another throttle\n", addr)
		},
		OnAccInputChanged: func(group, nibble byte, hasError bool, kind xpressnet.AccInputType, state byte) {
			fmt.Printf("accessory group %d nibble %d: state=0x%02X error=%v\n", group, nibble, state, hasError)
		},
		OnError: func(err error) { fmt.Fprintln(os.Stderr, "error:", err) },
	}

	d, desc, err := connectDriver(ctx, events)
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)
	fmt.Println("monitoring, press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	return nil
}
