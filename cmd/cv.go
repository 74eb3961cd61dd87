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

var cvPom bool
var cvPomAddr int

var cvReadCmd = &cobra.Command{
	Use:   "cv-read <cv>",
	Short: "Read a CV on the programming track",
	Args:  cobra.ExactArgs(1),
	RunE:  runCvRead,
}

var cvWriteCmd = &cobra.Command{
	Use:   "cv-write <cv> <value>",
	Short: "Write a CV on the programming track, or via Programming on Main with --pom",
	Args:  cobra.ExactArgs(2),
	RunE:  runCvWrite,
}

func init() {
	cvWriteCmd.Flags().BoolVar(&cvPom, "pom", false, "Write via Programming on Main instead of the programming track")
	cvWriteCmd.Flags().IntVar(&cvPomAddr, "addr", 0, "Locomotive address (required with --pom)")
	rootCmd.AddCommand(cvReadCmd)
	rootCmd.AddCommand(cvWriteCmd)
}

func parseCv(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid CV number %q: %w", s, err)
	}
	return n, nil
}

func runCvRead(cmd *cobra.Command, args []string) error {
	cv, err := parseCv(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	d, desc, err := connectDriver(ctx, &xpressnet.Events{})
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)

	result := make(chan xpressnet.CvResult, 1)
	errs := make(chan error, 1)
	d.ReadDirectCv(cv, func(r xpressnet.CvResult) { result <- r }, func(e error) { errs <- e })

	select {
	case r := <-result:
		fmt.Printf("CV%d = %d (0x%02X)\n", r.Cv, r.Value, r.Value)
		return nil
	case e := <-errs:
		return e
	}
}

func runCvWrite(cmd *cobra.Command, args []string) error {
	cv, err := parseCv(args[0])
	if err != nil {
		return err
	}
	val, err := strconv.Atoi(args[1])
	if err != nil || val < 0 || val > 255 {
		return fmt.Errorf("invalid CV value %q (want 0..255)", args[1])
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	d, desc, err := connectDriver(ctx, &xpressnet.Events{})
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)

	if cvPom {
		if cvPomAddr <= 0 {
			return fmt.Errorf("--pom requires --addr")
		}
		addr, err := xpressnet.NewLocoAddr(cvPomAddr)
		if err != nil {
			return err
		}
		if err := waitOkErr(func(ok func(), errCb func(error)) {
			d.PomWriteCv(addr, cv, byte(val), ok, errCb)
		}); err != nil {
			return err
		}
		fmt.Printf("loco %s: CV%d <- %d (POM)\n", addr, cv, val)
		return nil
	}

	if err := waitOkErr(func(ok func(), errCb func(error)) { d.WriteDirectCv(cv, byte(val), ok, errCb) }); err != nil {
		return err
	}
	fmt.Printf("CV%d <- %d\n", cv, val)
	return nil
}
