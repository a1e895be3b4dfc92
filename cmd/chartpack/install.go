package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/sequencer"
)

var installOptional bool

var installCmd = &cobra.Command{
	Use:   "install <region>",
	Short: "Download and install a region's chart packs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, cleanup, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		regionID := args[0]

		region, err := a.Catalog.GetRegion(ctx, regionID)
		if err != nil {
			return err
		}
		var total int64
		for _, pkg := range region.Packages {
			if pkg.Required || installOptional {
				total += pkg.SizeBytes
			}
		}
		fmt.Printf("Installing %s (%s): %s to download\n", region.Name, regionID, humanize.Bytes(uint64(total)))

		outcome, err := a.InstallRegion(ctx, regionID, installOptional)
		printOutcome(outcome)
		if err != nil {
			return err
		}
		if outcome.Cancelled {
			fmt.Println("Interrupted. Checkpoints saved; run 'chartpack resume' to continue.")
		}
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&installOptional, "optional", false, "include optional packages (imagery, terrain)")
}

func printOutcome(outcome sequencer.Outcome) {
	for _, st := range outcome.Statuses {
		marker := " "
		switch st.State {
		case domain.ItemComplete:
			marker = "+"
		case domain.ItemError:
			marker = "!"
		}
		line := fmt.Sprintf("%s %-20s %s", marker, st.ItemID, st.State)
		if st.Message != "" {
			line += " (" + st.Message + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("completed=%d failed=%d skipped=%d\n", outcome.Completed, outcome.Failed, outcome.Skipped)
}
