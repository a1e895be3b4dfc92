package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "chartpack",
	Short: "Offline chart pack manager",
	Long: `chartpack downloads, extracts and manages offline chart packs per
marine region: raster chart tiles by scale band, satellite and terrain
imagery, place names, tide predictions, buoys and marine zones.

Interrupted downloads are checkpointed and resume from where they left
off, across restarts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to chartpack.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
