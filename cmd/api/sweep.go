package main

import (
	"context"
	"fmt"

	"contractor-payouts/internal/worker"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one settlement sweep and exit",
		Long: `Run one settlement sweep over due transfer jobs and exit.

When redis is enabled the sweep takes the same lease as the in-process
worker, so it is skipped while another instance is sweeping.`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := worker.NewScheduler(a.settlement, a.lease, cfg.Worker.Schedule, cfg.Worker.LeaseTTL, log)
	ran, err := scheduler.RunOnce(ctx)
	if err != nil {
		return err
	}
	if !ran {
		fmt.Fprintln(cmd.OutOrStdout(), "sweep skipped: lease held by another instance")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "sweep complete")
	return nil
}
