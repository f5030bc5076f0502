// Package cmd implements the phospec command-line entrypoint.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "phospec",
	Short: "Monte Carlo photon-transport simulator for SPECT imaging",
}

// Execute runs the root command, exiting non-zero on any unrecoverable
// configuration or data-load error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
