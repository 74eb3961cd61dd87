// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

var throttleReverse bool

var throttleCmd = &cobra.Command{
	Use:   "throttle <addr> <speed>",
	Short: "Set a locomotive's speed and direction",
	Args:  cobra.ExactArgs(2),
	RunE:  runThrottle,
}

var funcCmd = &cobra.Command{
	Use:   "func <addr> <function> <on|off>",
	Short: "Set a single locomotive function (F0..F28)",
	Args:  cobra.ExactArgs(3),
	RunE:  runFunc,
}

func init() {
	throttleCmd.Flags().BoolVarP(&throttleReverse, "reverse", "r", false, "Run in reverse")
	rootCmd.AddCommand(throttleCmd)
	rootCmd.AddCommand(funcCmd)
}

func parseAddr(s string) (xpressnet.LocoAddr, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return xpressnet.LocoAddr{}, fmt.Errorf("invalid locomotive address %q: %w", s, err)
	}
	return xpressnet.NewLocoAddr(n)
}

func runThrottle(cmd *cobra.Command, args []string) error {
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	speed, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid speed %q: %w", args[1], err)
	}
	dir := xpressnet.Forward
	if throttleReverse {
		dir = xpressnet.Backward
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	d, desc, err := connectDriver(ctx, &xpressnet.Events{})
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)

	if err := waitOkErr(func(ok func(), errCb func(error)) { d.SetLocoSpeed(addr, speed, dir, ok, errCb) }); err != nil {
		return err
	}
	fmt.Printf("loco %s: speed %d, %s\n", addr, speed, dirName(dir))
	return nil
}

func runFunc(cmd *cobra.Command, args []string) error {
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 || n > 28 {
		return fmt.Errorf("invalid function number %q (want 0..28)", args[1])
	}
	var state bool
	switch args[2] {
	case "on":
		state = true
	case "off":
		state = false
	default:
		return fmt.Errorf("invalid state %q (want on or off)", args[2])
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	d, desc, err := connectDriver(ctx, &xpressnet.Events{})
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)

	mask := xpressnet.FunctionMask(1) << uint(n)
	if err := waitOkErr(func(ok func(), errCb func(error)) { d.SetLocoFunc(addr, mask, state, ok, errCb) }); err != nil {
		return err
	}
	fmt.Printf("loco %s: F%d %s\n", addr, n, args[2])
	return nil
}

func dirName(d xpressnet.Direction) string {
	if d == xpressnet.Forward {
		return "forward"
	}
	return "reverse"
}
