package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [region]",
	Short: "Resume incomplete transfers from their saved checkpoints",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, cleanup, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		regionID := ""
		if len(args) == 1 {
			regionID = args[0]
		}

		outcome, err := a.ResumeRegion(ctx, regionID)
		if len(outcome.Statuses) == 0 && err == nil {
			fmt.Println("Nothing to resume.")
			return nil
		}
		printOutcome(outcome)
		return err
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [region]",
	Short: "Pause transfers, keeping their checkpoints",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := buildApp(context.Background())
		if err != nil {
			return err
		}
		defer cleanup()

		regionID := ""
		if len(args) == 1 {
			regionID = args[0]
		}

		if err := a.Ledger.PauseAll(regionID); err != nil {
			return err
		}
		fmt.Println("Transfers paused.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show incomplete transfers and installed capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := buildApp(context.Background())
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := a.Ledger.GetIncomplete("")
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No incomplete transfers.")
			return nil
		}

		fmt.Printf("%d incomplete transfers:\n", len(records))
		for _, rec := range records {
			fmt.Printf("  %s/%s  %s of %s  [%s]\n",
				rec.RegionID, rec.PackageID,
				humanize.Bytes(uint64(rec.BytesDownloaded)),
				humanize.Bytes(uint64(rec.TotalBytes)),
				rec.State)
		}
		return nil
	},
}
