package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tidemark/chartpack/internal/packs"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <region>",
	Short: "Remove a region's installed packs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := buildApp(context.Background())
		if err != nil {
			return err
		}
		defer cleanup()

		regionID := args[0]

		if err := a.Ledger.CancelAll(regionID); err != nil {
			return err
		}

		others, err := packs.InstalledRegionIDs(a.Config.Packs.Dir, regionID)
		if err != nil {
			return err
		}

		result, err := a.Remover.DeleteRegion(regionID, others)
		if err != nil {
			return err
		}

		fmt.Printf("Deleted %d files, freed %s.\n", result.FilesDeleted, humanize.Bytes(uint64(result.BytesFreed)))
		return nil
	},
}

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Rebuild the tile server manifest from the package directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := buildApp(context.Background())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := a.Manifest.Generate(); err != nil {
			return err
		}
		fmt.Printf("Manifest written to %s.\n", a.Config.Packs.ManifestPath)
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog <region>",
	Short: "Show a region's catalog entry and local install state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

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

		installed, err := packs.InstalledPackageIDs(a.Config.Packs.Dir, regionID)
		if err != nil {
			return err
		}
		onDisk := make(map[string]bool, len(installed))
		for _, id := range installed {
			onDisk[id] = true
		}

		fmt.Printf("%s (%s)\n", region.Name, region.ID)
		for _, pkg := range region.Packages {
			state := " "
			if onDisk[pkg.ID] {
				state = "*"
			}
			req := "optional"
			if pkg.Required {
				req = "required"
			}
			fmt.Printf("  %s %-20s %-12s %-9s %s\n", state, pkg.ID, pkg.Type, req, humanize.Bytes(uint64(pkg.SizeBytes)))
		}
		fmt.Println("  (* = installed)")
		return nil
	},
}
