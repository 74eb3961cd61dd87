// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/spf13/cobra"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

var statsSamples int
var statsAddr int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Sample command round-trip latency and print an ASCII histogram",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsSamples, "samples", "n", 30, "Number of round trips to sample")
	statsCmd.Flags().IntVar(&statsAddr, "addr", 3, "Locomotive address to query for each sample")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	d, desc, err := connectDriver(ctx, &xpressnet.Events{})
	if err != nil {
		return err
	}
	defer d.Disconnect()
	fmt.Println("connected:", desc)

	addr, err := xpressnet.NewLocoAddr(statsAddr)
	if err != nil {
		return err
	}

	latencies := make([]float64, 0, statsSamples)
	for i := 0; i < statsSamples; i++ {
		start := time.Now()
		result := make(chan error, 1)
		d.AcquireLoco(addr, func(xpressnet.LocoInfo) { result <- nil }, func(e error) { result <- e })
		if err := <-result; err != nil {
			fmt.Fprintln(os.Stderr, "sample failed:", err)
			continue
		}
		latencies = append(latencies, float64(time.Since(start).Milliseconds()))
	}

	if len(latencies) == 0 {
		return fmt.Errorf("no successful samples collected")
	}

	hist, err := histogram.Hist(10, latencies)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	fmt.Printf("round-trip latency over %d samples (ms):\n", len(latencies))
	return histogram.Fprint(os.Stdout, hist, histogram.Linear(60))
}
