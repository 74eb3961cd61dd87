// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

var trackCmd = &cobra.Command{
	Use:   "track [on|off|status]",
	Short: "Switch track power or report status",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan struct{}, 1)
	events := &xpressnet.Events{
		OnTrkStatusChanged: func(s xpressnet.TrkStatus) {
			fmt.Printf("track status: %s\n", s)
			select {
			case done <- struct{}{}:
			default:
			}
		},
	}

	d, desc, err := connectDriver(ctx, events)
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)

	switch args[0] {
	case "status":
		fmt.Println("track status:", d.TrkStatus())
		return nil
	case "on":
		return waitOkErr(func(ok func(), errCb func(error)) { d.SetTrackStatus(xpressnet.TrkOn, ok, errCb) })
	case "off":
		return waitOkErr(func(ok func(), errCb func(error)) { d.SetTrackStatus(xpressnet.TrkOff, ok, errCb) })
	default:
		return fmt.Errorf("unknown track subcommand %q (want on, off, or status)", args[0])
	}
}

// waitOkErr calls op with callbacks wired to a result channel and blocks
// until one of them fires, translating the outcome into a Go error.
func waitOkErr(op func(ok func(), errCb func(error))) error {
	result := make(chan error, 1)
	op(func() { result <- nil }, func(e error) { result <- e })
	return <-result
}
